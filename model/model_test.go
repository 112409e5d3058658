package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	module := "job"
	id := GenerateUUIDWithSuffix(module)
	assert.Contains(t, id, module+"_")
	assert.NotEqual(t, id, GenerateUUIDWithSuffix(module))
}

func TestInventoryUnit_Available(t *testing.T) {
	u := InventoryUnit{PhysicalQuantity: 10, ReservedQuantity: 4}
	assert.Equal(t, int64(6), u.Available())
}

func TestStorageUnitEligibility(t *testing.T) {
	tests := []struct {
		name        string
		unit        StorageUnit
		demandID    string
		source      bool
		sourceFor   bool
		destination bool
	}{
		{
			name:      "open storage box",
			unit:      StorageUnit{Kind: KindStorage, Status: UnitStatusOpen},
			demandID:  "ord_1",
			source:    true,
			sourceFor: true,
		},
		{
			name:      "storage box locked to another demand",
			unit:      StorageUnit{Kind: KindStorage, Status: UnitStatusOpen, LockOwner: "trf_2"},
			demandID:  "ord_1",
			source:    false,
			sourceFor: false,
		},
		{
			name:      "storage box locked to the same demand",
			unit:      StorageUnit{Kind: KindStorage, Status: UnitStatusOpen, LockOwner: "trf_2"},
			demandID:  "trf_2",
			source:    false,
			sourceFor: true,
		},
		{
			name:     "closed box",
			unit:     StorageUnit{Kind: KindStorage, Status: UnitStatusClosed},
			demandID: "ord_1",
		},
		{
			name:        "unlocked outbox",
			unit:        StorageUnit{Kind: KindOutbox, Status: UnitStatusOpen},
			demandID:    "ord_1",
			destination: true,
		},
		{
			name:        "outbox locked to the same demand",
			unit:        StorageUnit{Kind: KindOutbox, Status: UnitStatusOpen, LockOwner: "ord_1"},
			demandID:    "ord_1",
			destination: true,
		},
		{
			name:     "outbox locked to another demand",
			unit:     StorageUnit{Kind: KindOutbox, Status: UnitStatusOpen, LockOwner: "ord_9"},
			demandID: "ord_1",
		},
		{
			name:     "cart is never a destination",
			unit:     StorageUnit{Kind: KindCart, Status: UnitStatusOpen},
			demandID: "ord_1",
			source:   true, sourceFor: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.source, tt.unit.EligibleAsSource())
			assert.Equal(t, tt.sourceFor, tt.unit.EligibleAsSourceFor(tt.demandID))
			assert.Equal(t, tt.destination, tt.unit.EligibleAsDestinationFor(tt.demandID))
		})
	}
}

func TestDemand_OutstandingLines(t *testing.T) {
	d := Demand{Lines: []DemandLine{
		{LineID: "l1", ProductID: "p1", QuantityRequested: 5, QuantityReserved: 5},
		{LineID: "l2", ProductID: "p2", QuantityRequested: 5, QuantityReserved: 2},
		{LineID: "l3", ProductID: "p3", BoxID: "bx1", QuantityRequested: 4},
	}}
	lines := d.OutstandingLines()
	assert.Len(t, lines, 1)
	assert.Equal(t, "l2", lines[0].LineID)
	assert.Equal(t, int64(3), lines[0].Outstanding())
}

func TestIntegrityError_Unwrap(t *testing.T) {
	err := &IntegrityError{TaskID: "tsk_1", ProductID: "p1", SourceUnitID: "bx1", Needed: 5, Found: 3}
	assert.True(t, errors.Is(err, ErrInsufficientPhysicalStock))
	assert.Contains(t, err.Error(), "tsk_1")
	assert.Contains(t, err.Error(), "needs 5, found 3")
}

func TestInsufficientApprovalError(t *testing.T) {
	err := &InsufficientApprovalError{ProductID: "sku-1", Needed: 3, Available: 1}
	assert.EqualError(t, err, "insufficient available for sku-1")
	assert.True(t, errors.Is(err, ErrInsufficientAvailability))
}
