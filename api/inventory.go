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

	model2 "github.com/blnkfinance/wharf/api/model"
)

func (a Api) CreateLocation(c *gin.Context) {
	var req model2.CreateLocation
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateCreateLocation(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.CreateLocation(c.Request.Context(), req.ToLocation())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) CreateStorageUnit(c *gin.Context) {
	var req model2.CreateStorageUnit
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateCreateStorageUnit(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.CreateStorageUnit(c.Request.Context(), req.ToStorageUnit())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) ReceiveStock(c *gin.Context) {
	var req model2.ReceiveStock
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, err)
		return
	}
	if err := req.ValidateReceiveStock(); err != nil {
		invalidInput(c, err)
		return
	}

	resp, err := a.wharf.ReceiveStock(c.Request.Context(), req.ToInventoryUnit(), req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetInventory(c *gin.Context) {
	resp, err := a.wharf.GetInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetTransactions(c *gin.Context) {
	reference := c.Query("reference_id")
	if reference == "" {
		invalidInput(c, errors.New("reference_id is required"))
		return
	}

	resp, err := a.wharf.GetTransactions(c.Request.Context(), reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
