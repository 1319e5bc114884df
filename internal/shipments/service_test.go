package shipments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtauto/dtauto/internal/costs"
	"github.com/dtauto/dtauto/internal/shared"
)

type memoryShipmentRepo struct {
	shipments map[int64]Shipment
	nextID    int64
}

func newMemoryShipmentRepo() *memoryShipmentRepo {
	return &memoryShipmentRepo{shipments: make(map[int64]Shipment), nextID: 1}
}

func (m *memoryShipmentRepo) ListShipments(context.Context) ([]Shipment, error) {
	out := make([]Shipment, 0, len(m.shipments))
	for _, s := range m.shipments {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryShipmentRepo) GetShipment(_ context.Context, id int64) (*Shipment, error) {
	s, ok := m.shipments[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memoryShipmentRepo) InsertShipment(_ context.Context, s Shipment) (*Shipment, error) {
	s.ID = m.nextID
	m.nextID++
	m.shipments[s.ID] = s
	return &s, nil
}

func (m *memoryShipmentRepo) UpdateShipment(_ context.Context, s Shipment) error {
	if _, ok := m.shipments[s.ID]; !ok {
		return shared.ErrNotFound
	}
	m.shipments[s.ID] = s
	return nil
}

type fakeCostMirror struct {
	synced  []costs.ShipmentCosts
	locked  []int64
	syncErr error
	lockErr error
}

func (f *fakeCostMirror) SyncShipmentCosts(_ context.Context, mirror costs.ShipmentCosts) error {
	if f.syncErr != nil {
		return f.syncErr
	}
	f.synced = append(f.synced, mirror)
	return nil
}

func (f *fakeCostMirror) LockShipment(_ context.Context, shipmentID int64) (int64, error) {
	if f.lockErr != nil {
		return 0, f.lockErr
	}
	f.locked = append(f.locked, shipmentID)
	return 3, nil
}

func seedShipment(t *testing.T, svc *Service, input Input) *Shipment {
	t.Helper()
	created, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return created
}

func baseInput() Input {
	return Input{
		Reference:           "HOU-SPS-2026-014",
		Origin:              "Houston, TX",
		Destination:         "Puerto Cortes",
		Carrier:             "Seaboard Marine",
		GroundTransportCost: 900,
		CustomsBrokerFees:   450,
		OceanFreightCost:    2100,
		ImportFeesCost:      1300,
	}
}

func TestCreateStartsPlannedAndSyncsMirror(t *testing.T) {
	mirror := &fakeCostMirror{}
	svc := NewService(newMemoryShipmentRepo(), mirror, nil, nil)

	created := seedShipment(t, svc, baseInput())
	require.Equal(t, StatusPlanned, created.Status)
	require.Len(t, mirror.synced, 1)
	require.Equal(t, costs.ShipmentCosts{
		ShipmentID:      created.ID,
		GroundTransport: 900,
		CustomsBroker:   450,
		OceanFreight:    2100,
		ImportFees:      1300,
	}, mirror.synced[0])
}

func TestUpdateResyncsMirror(t *testing.T) {
	mirror := &fakeCostMirror{}
	svc := NewService(newMemoryShipmentRepo(), mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	input := baseInput()
	input.OceanFreightCost = 2400
	input.ImportFeesCost = 0
	_, err := svc.Update(context.Background(), created.ID, input)
	require.NoError(t, err)

	require.Len(t, mirror.synced, 2)
	last := mirror.synced[1]
	require.Equal(t, 2400.0, last.OceanFreight)
	require.Equal(t, 0.0, last.ImportFees)
}

func TestUpdateKeepsShipmentWhenMirrorSyncFails(t *testing.T) {
	repo := newMemoryShipmentRepo()
	mirror := &fakeCostMirror{}
	svc := NewService(repo, mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	mirror.syncErr = errors.New("ledger backend down")
	input := baseInput()
	input.OceanFreightCost = 2400
	_, err := svc.Update(context.Background(), created.ID, input)
	require.Error(t, err)

	// The stored aggregates must still match the last synced mirror.
	stored, err := repo.GetShipment(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 2100.0, stored.OceanFreightCost)
	require.Len(t, mirror.synced, 1)
}

func TestUpdateStatusMovesForwardOnly(t *testing.T) {
	mirror := &fakeCostMirror{}
	svc := NewService(newMemoryShipmentRepo(), mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	moved, err := svc.UpdateStatus(context.Background(), created.ID, StatusAtPort)
	require.NoError(t, err)
	require.Equal(t, StatusAtPort, moved.Status)

	_, err = svc.UpdateStatus(context.Background(), created.ID, StatusPlanned)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), created.ID, StatusAtPort)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusCannotEnterCleared(t *testing.T) {
	mirror := &fakeCostMirror{}
	svc := NewService(newMemoryShipmentRepo(), mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	_, err := svc.UpdateStatus(context.Background(), created.ID, StatusCustomsCleared)
	require.ErrorIs(t, err, ErrClearanceRequired)
	require.Empty(t, mirror.locked)
}

func TestClearCustomsLocksOnce(t *testing.T) {
	mirror := &fakeCostMirror{}
	svc := NewService(newMemoryShipmentRepo(), mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	cleared, err := svc.ClearCustoms(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCustomsCleared, cleared.Status)
	require.Equal(t, []int64{created.ID}, mirror.locked)

	_, err = svc.ClearCustoms(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrAlreadyCleared)
	require.Len(t, mirror.locked, 1)
}

func TestClearCustomsPersistsBeforeLock(t *testing.T) {
	repo := newMemoryShipmentRepo()
	mirror := &fakeCostMirror{lockErr: errors.New("lock backend down")}
	svc := NewService(repo, mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	_, err := svc.ClearCustoms(context.Background(), created.ID)
	require.Error(t, err)

	stored, err := repo.GetShipment(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCustomsCleared, stored.Status)
}

func TestUpdateCostFieldsFrozenAfterClearance(t *testing.T) {
	mirror := &fakeCostMirror{}
	svc := NewService(newMemoryShipmentRepo(), mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	_, err := svc.ClearCustoms(context.Background(), created.ID)
	require.NoError(t, err)

	input := baseInput()
	input.GroundTransportCost = 950
	_, err = svc.Update(context.Background(), created.ID, input)
	require.ErrorIs(t, err, costs.ErrLocked)
	var locked *costs.LockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, created.ID, locked.ShipmentID)

	// Documents may still be attached after clearance.
	input = baseInput()
	input.CustomsDocsURL = "https://docs.dtauto.example/clearance-17.pdf"
	updated, err := svc.Update(context.Background(), created.ID, input)
	require.NoError(t, err)
	require.Equal(t, "https://docs.dtauto.example/clearance-17.pdf", updated.CustomsDocsURL)
	// No mirror re-sync once the ledger is frozen.
	require.Len(t, mirror.synced, 1)
}

func TestCompletedReachableAfterClearance(t *testing.T) {
	mirror := &fakeCostMirror{}
	svc := NewService(newMemoryShipmentRepo(), mirror, nil, nil)
	created := seedShipment(t, svc, baseInput())

	_, err := svc.ClearCustoms(context.Background(), created.ID)
	require.NoError(t, err)

	done, err := svc.UpdateStatus(context.Background(), created.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
}
