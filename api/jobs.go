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
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	model2 "github.com/blnkfinance/wharf/api/model"
	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

// parseJobFilter reads status, zone, limit and offset from the query string.
func parseJobFilter(c *gin.Context) (database.JobFilter, error) {
	filter := database.JobFilter{
		Status: model.JobStatus(strings.ToUpper(c.Query("status"))),
		Zone:   c.Query("zone"),
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("%s must be a non-negative integer", name)
		}
		*dst = n
	}
	return filter, nil
}

func (a Api) ListJobs(c *gin.Context) {
	filter, err := parseJobFilter(c)
	if err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.ListJobs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetJob(c *gin.Context) {
	resp, err := a.wharf.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) DeleteJob(c *gin.Context) {
	if err := a.wharf.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a Api) ConfirmTask(c *gin.Context) {
	var req model2.ConfirmTask
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateConfirmTask(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.ConfirmTask(c.Request.Context(), c.Param("id"), req.DestinationUnitCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) ReportPickException(c *gin.Context) {
	var req model2.ReportException
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateReportException(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.ReportPickException(c.Request.Context(), c.Param("id"), *req.AvailableQty, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) ReplacementSuggestions(c *gin.Context) {
	resp, err := a.wharf.ReplacementSuggestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
