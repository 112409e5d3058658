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

package model

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/blnkfinance/wharf/model"
)

var (
	demandKinds      = []interface{}{string(model.DemandOrder), string(model.DemandTransfer)}
	classes          = []interface{}{"", string(model.ClassPiece), string(model.ClassBulk)}
	storageUnitKinds = []interface{}{"", string(model.KindStorage), string(model.KindOutbox), string(model.KindCart)}
)

func linesRequiredFor(d *CreateDemand) validation.RuleFunc {
	return func(value interface{}) error {
		if strings.ToUpper(d.Kind) == string(model.DemandOrder) && len(d.Lines) == 0 {
			return errors.New("an order needs at least one line")
		}
		return nil
	}
}

func (l DemandLine) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.ProductID, validation.Required),
		validation.Field(&l.Class, validation.In(classes...)),
		validation.Field(&l.Quantity, validation.Required, validation.Min(int64(1))),
	)
}

func (d *CreateDemand) ValidateCreateDemand() error {
	d.Kind = strings.ToUpper(strings.TrimSpace(d.Kind))
	return validation.ValidateStruct(d,
		validation.Field(&d.Kind, validation.Required, validation.In(demandKinds...)),
		validation.Field(&d.Lines, validation.By(linesRequiredFor(d))),
	)
}

func (b *LinkBox) ValidateLinkBox() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.BoxID, validation.Required),
	)
}

func (a *ApproveTransfer) ValidateApproveTransfer() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.UserID, validation.Required),
	)
}

func (w *PlanWave) ValidatePlanWave() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.OrderIDs, validation.Required, validation.Each(validation.Required)),
	)
}

func (c *ConfirmTask) ValidateConfirmTask() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DestinationUnitCode, validation.Required),
	)
}

func (e *ReportException) ValidateReportException() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.AvailableQty, validation.NotNil, validation.Min(int64(0))),
	)
}

func (l *CreateLocation) ValidateCreateLocation() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Code, validation.Required),
		validation.Field(&l.Zone, validation.Required),
		validation.Field(&l.Level, validation.Min(0)),
	)
}

func (s *CreateStorageUnit) ValidateCreateStorageUnit() error {
	s.Kind = strings.ToUpper(strings.TrimSpace(s.Kind))
	return validation.ValidateStruct(s,
		validation.Field(&s.Code, validation.Required),
		validation.Field(&s.Kind, validation.In(storageUnitKinds...)),
		validation.Field(&s.LocationID, validation.Required),
	)
}

func (r *ReceiveStock) ValidateReceiveStock() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ProductID, validation.Required),
		validation.Field(&r.StorageUnitID, validation.Required),
		validation.Field(&r.Class, validation.In(classes...)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(int64(1))),
	)
}
