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
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/blnkfinance/wharf/api/model"
)

func (a Api) CreateDemand(c *gin.Context) {
	var newDemand model2.CreateDemand
	if err := c.ShouldBindJSON(&newDemand); err != nil {
		invalidInput(c, err)
		return
	}

	if err := newDemand.ValidateCreateDemand(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.CreateDemand(c.Request.Context(), newDemand.ToDemand())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetDemand(c *gin.Context) {
	resp, err := a.wharf.GetDemand(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) AllocateDemand(c *gin.Context) {
	resp, err := a.wharf.AllocateDemand(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) LinkBox(c *gin.Context) {
	var req model2.LinkBox
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateLinkBox(); err != nil {
		invalidInput(c, err)
		return
	}

	id := c.Param("id")
	if err := a.wharf.LinkBox(c.Request.Context(), id, req.BoxID); err != nil {
		respondError(c, err)
		return
	}

	resp, err := a.wharf.GetDemand(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) AllocateBoxTransfer(c *gin.Context) {
	resp, err := a.wharf.AllocateBoxTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) ApproveTransfer(c *gin.Context) {
	var req model2.ApproveTransfer
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateApproveTransfer(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.ApproveReservation(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) PlanWave(c *gin.Context) {
	var req model2.PlanWave
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidatePlanWave(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.PlanWave(c.Request.Context(), req.OrderIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
