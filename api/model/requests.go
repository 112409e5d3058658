package model

import (
	"strings"

	"github.com/blnkfinance/wharf/model"
)

type DemandLine struct {
	ProductID string `json:"product_id"`
	Class     string `json:"class"`
	Quantity  int64  `json:"quantity"`
}

type CreateDemand struct {
	Kind  string       `json:"kind"`
	Lines []DemandLine `json:"lines"`
}

type LinkBox struct {
	BoxID string `json:"box_id"`
}

type ApproveTransfer struct {
	UserID string `json:"user_id"`
}

type PlanWave struct {
	OrderIDs []string `json:"order_ids"`
}

type ConfirmTask struct {
	DestinationUnitCode string `json:"destination_unit_code"`
}

type ReportException struct {
	AvailableQty *int64 `json:"available_qty"`
	Reason       string `json:"reason"`
}

type CreateLocation struct {
	Code  string `json:"code"`
	Zone  string `json:"zone"`
	Level int    `json:"level"`
}

type CreateStorageUnit struct {
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	LocationID string `json:"location_id"`
}

type ReceiveStock struct {
	ProductID     string `json:"product_id"`
	StorageUnitID string `json:"storage_unit_id"`
	Class         string `json:"class"`
	Quantity      int64  `json:"quantity"`
	Reference     string `json:"reference"`
}

func (d *CreateDemand) ToDemand() model.Demand {
	demand := model.Demand{Kind: model.DemandKind(d.Kind)}
	for _, l := range d.Lines {
		demand.Lines = append(demand.Lines, model.DemandLine{
			ProductID:         strings.TrimSpace(l.ProductID),
			Class:             model.InventoryClass(l.Class),
			QuantityRequested: l.Quantity,
		})
	}
	return demand
}

func (l *CreateLocation) ToLocation() model.Location {
	return model.Location{Code: strings.TrimSpace(l.Code), Zone: l.Zone, Level: l.Level}
}

func (s *CreateStorageUnit) ToStorageUnit() model.StorageUnit {
	return model.StorageUnit{
		Code:       strings.TrimSpace(s.Code),
		Kind:       model.StorageUnitKind(s.Kind),
		LocationID: s.LocationID,
	}
}

func (r *ReceiveStock) ToInventoryUnit() model.InventoryUnit {
	return model.InventoryUnit{
		ProductID:        strings.TrimSpace(r.ProductID),
		StorageUnitID:    r.StorageUnitID,
		Class:            model.InventoryClass(r.Class),
		PhysicalQuantity: r.Quantity,
	}
}
