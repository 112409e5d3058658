/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/blnkfinance/wharf"
	"github.com/blnkfinance/wharf/allocator"
	"github.com/blnkfinance/wharf/api/middleware"
	"github.com/blnkfinance/wharf/config"
	"github.com/blnkfinance/wharf/internal/apierror"
)

type Api struct {
	wharf  *wharf.Wharf
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/demands", a.CreateDemand)
	router.GET("/demands/:id", a.GetDemand)
	router.POST("/demands/:id/allocate", a.AllocateDemand)

	router.POST("/transfers/:id/boxes", a.LinkBox)
	router.POST("/transfers/:id/allocate-boxes", a.AllocateBoxTransfer)
	router.POST("/transfers/:id/approve", a.ApproveTransfer)

	router.POST("/waves", a.PlanWave)

	router.GET("/jobs", a.ListJobs)
	router.GET("/jobs/:id", a.GetJob)
	router.DELETE("/jobs/:id", a.DeleteJob)

	router.POST("/tasks/:id/confirm", a.ConfirmTask)
	router.POST("/tasks/:id/exceptions", a.ReportPickException)
	router.GET("/exceptions/:id/replacements", a.ReplacementSuggestions)

	router.POST("/locations", a.CreateLocation)
	router.POST("/storage-units", a.CreateStorageUnit)
	router.GET("/storage-units/:id/inventory", a.GetInventory)
	router.POST("/inventory", a.ReceiveStock)

	router.GET("/transactions", a.GetTransactions)
	return a.router
}

func NewAPI(w *wharf.Wharf) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.Tracing.ServiceName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{wharf: w, router: r}
}

// respondError writes err as JSON. Shortages carry their per-product lines at the top level.
func respondError(c *gin.Context, err error) {
	var shortage *allocator.ShortageError
	if errors.As(err, &shortage) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": shortage.Error(), "shortage": shortage.Lines})
		return
	}

	apiErr := apierror.FromDomain(err)
	c.JSON(apierror.MapErrorToHTTPStatus(apiErr), apiErr)
}

func invalidInput(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
}
