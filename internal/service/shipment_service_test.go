package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transition(t *testing.T, env *testutil.Env, shipment *domain.Shipment, status string) (*domain.Shipment, error) {
	t.Helper()
	return env.Services.Shipments.Transition(context.Background(), shipment.ID, &domain.TransitionRequest{Status: status})
}

// departShipment books and documents a sea shipment and moves it to DEPARTED
func departShipment(t *testing.T, env *testutil.Env, shipment *domain.Shipment) {
	t.Helper()
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)
	_, err := testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 1)
	require.NoError(t, err)
	mbl := createMasterBL(t, env, shipment, "MBL-"+shipment.ShipmentNo)
	_, err = env.Services.Documents.IssueMasterBL(context.Background(), mbl.ID)
	require.NoError(t, err)
	_, err = transition(t, env, shipment, "DEPARTED")
	require.NoError(t, err)
}

// ============================================================================
// Creation
// ============================================================================

func TestCreateShipment(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	assert.Equal(t, domain.ShipmentStatusDraft, shipment.Status)
	assert.Regexp(t, `^SHP-\d{4}-\d{3}$`, shipment.ShipmentNo)

	byNumber, err := env.Services.Shipments.GetByNumber(ctx, shipment.ShipmentNo)
	require.NoError(t, err)
	assert.Equal(t, shipment.ID, byNumber.ID)

	history, err := env.Services.Shipments.History(ctx, shipment.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "CRT", history[0].EventCode)
	assert.Equal(t, domain.ShipmentStatusDraft, history[0].StatusCD)
	assert.Equal(t, testutil.OriginPort, history[0].LocationCode)
}

func TestCreateShipment_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	etd := testutil.Date(2030, time.May, 10)
	eta := testutil.Date(2030, time.May, 1)

	tests := []struct {
		name   string
		req    domain.ShipmentRequest
		target error
	}{
		{
			name:   "unknown customer",
			req:    domain.ShipmentRequest{TransportMode: domain.TransportModeSea, TradeType: domain.TradeTypeExport, CustomerCode: "NOBODY"},
			target: domain.ErrReferentialIntegrity,
		},
		{
			name:   "unknown destination port",
			req:    domain.ShipmentRequest{TransportMode: domain.TransportModeSea, TradeType: domain.TradeTypeExport, CustomerCode: testutil.CustomerCode, DestPortCode: "XXXXX"},
			target: domain.ErrReferentialIntegrity,
		},
		{
			name:   "eta before etd",
			req:    domain.ShipmentRequest{TransportMode: domain.TransportModeSea, TradeType: domain.TradeTypeExport, CustomerCode: testutil.CustomerCode, ETD: &etd, ETA: &eta},
			target: domain.ErrValidation,
		},
		{
			name:   "invalid mode",
			req:    domain.ShipmentRequest{TransportMode: "RAIL", TradeType: domain.TradeTypeExport, CustomerCode: testutil.CustomerCode},
			target: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := env.Services.Shipments.CreateShipment(ctx, &req)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestShipmentLifecycle_ExportToDelivered(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	_, err := transition(t, env, shipment, "DEPARTED")
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "cannot skip BOOKED")

	_, err = transition(t, env, shipment, "BOOKED")
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "needs a confirmed booking")

	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)
	_, err = testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 1)
	require.NoError(t, err)

	_, err = transition(t, env, shipment, "DEPARTED")
	var transitionErr *domain.StateTransitionError
	require.True(t, errors.As(err, &transitionErr), "needs an issued master")

	mbl := createMasterBL(t, env, shipment, "MAEU777")
	_, err = env.Services.Documents.IssueMasterBL(ctx, mbl.ID)
	require.NoError(t, err)

	departed, err := transition(t, env, shipment, "DEPARTED")
	require.NoError(t, err)
	assert.NotNil(t, departed.ATD)

	_, err = env.Services.Shipments.Cancel(ctx, shipment.ID, "too late")
	assert.True(t, errors.Is(err, domain.ErrStateTransition))

	arrived, err := transition(t, env, shipment, "ARRIVED")
	require.NoError(t, err)
	assert.NotNil(t, arrived.ATA)

	_, err = transition(t, env, shipment, "CLEARED")
	require.NoError(t, err, "an export with no declaration clears freely")
	delivered, err := transition(t, env, shipment, "DELIVERED")
	require.NoError(t, err)
	assert.True(t, delivered.Status.IsTerminal())

	history, err := env.Services.Shipments.History(ctx, shipment.ID)
	require.NoError(t, err)
	codes := make([]string, 0, len(history))
	for _, e := range history {
		codes = append(codes, e.EventCode)
	}
	assert.Equal(t, []string{"DLV", "CLR", "ARR", "DEP", "BKD", "CRT"}, codes)
	assert.Equal(t, testutil.DestPort, history[0].LocationCode)

	err = env.Services.Shipments.Delete(ctx, shipment.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "delivered shipments are kept")
}

func TestShipmentTransition_RejectsBackdatedEvent(t *testing.T) {
	env := testutil.NewEnv(t)
	shipment := testutil.CreateSeaShipment(t, env.Services)
	departShipment(t, env, shipment)

	earlier := time.Now().UTC().Add(-48 * time.Hour)
	_, err := env.Services.Shipments.Transition(context.Background(), shipment.ID, &domain.TransitionRequest{
		Status:  "ARRIVED",
		EventAt: &earlier,
	})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
}

func TestShipmentTransition_UnknownStatus(t *testing.T) {
	env := testutil.NewEnv(t)
	shipment := testutil.CreateSeaShipment(t, env.Services)

	_, err := transition(t, env, shipment, "TELEPORTED")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestUpdateDraft_OnlyWhileDraft(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	req := &domain.ShipmentRequest{
		TransportMode:  domain.TransportModeSea,
		TradeType:      domain.TradeTypeExport,
		CustomerCode:   testutil.CustomerCode,
		OriginPortCode: testutil.OriginPort,
		DestPortCode:   testutil.DestPort,
		PackageQty:     120,
	}
	updated, err := env.Services.Shipments.UpdateDraft(ctx, shipment.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 120, updated.PackageQty)

	_, err = env.Services.Shipments.Cancel(ctx, shipment.ID, "duplicate")
	require.NoError(t, err)
	_, err = env.Services.Shipments.UpdateDraft(ctx, shipment.ID, req)
	assert.True(t, errors.Is(err, domain.ErrStateTransition))

	require.NoError(t, env.Services.Shipments.Delete(ctx, shipment.ID))
}

// ============================================================================
// Tracking
// ============================================================================

func TestRecordEvent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	event, err := env.Services.Tracking.RecordEvent(ctx, shipment.ID, &domain.RecordEventRequest{
		EventCode:    "GIN",
		LocationCode: "krpus",
		ContainerNo:  "msku1234567",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusDraft, event.StatusCD, "milestones carry the current status")
	assert.Equal(t, "KRPUS", event.LocationCode)
	assert.Equal(t, 2, event.Seq)

	_, err = env.Services.Tracking.RecordEvent(ctx, shipment.ID, &domain.RecordEventRequest{EventCode: "LOD", LocationCode: "NOWHR"})
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))

	_, err = env.Services.Tracking.RecordEvent(ctx, shipment.ID, &domain.RecordEventRequest{EventCode: "DEP"})
	assert.True(t, errors.Is(err, domain.ErrValidation), "status codes only come from transitions")

	earlier := time.Now().UTC().Add(-time.Hour)
	_, err = env.Services.Tracking.RecordEvent(ctx, shipment.ID, &domain.RecordEventRequest{EventCode: "LOD", EventAt: &earlier})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	found, err := env.Services.Tracking.ListByCode(ctx, "gin", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, found, 1)

	current, err := env.Services.Shipments.Get(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusDraft, current.Status, "milestones never move the status")
}

func TestFutureDatedEvents_AreRejected(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	future := time.Now().UTC().AddDate(5, 0, 0)

	_, err := env.Services.Tracking.RecordEvent(ctx, shipment.ID, &domain.RecordEventRequest{EventCode: "GIN", EventAt: &future})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)
	_, err = testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 1)
	require.NoError(t, err, "a rejected milestone leaves later transitions free")

	_, err = env.Services.Shipments.Transition(ctx, shipment.ID, &domain.TransitionRequest{Status: "DEPARTED", EventAt: &future})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	cancelled, err := env.Services.Shipments.Cancel(ctx, shipment.ID, "customer withdrew")
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusCancelled, cancelled.Status)
}

// ============================================================================
// Customs
// ============================================================================

func TestCustomsImportClearance(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	shipment, err := env.Services.Shipments.CreateShipment(ctx, &domain.ShipmentRequest{
		TransportMode:  domain.TransportModeSea,
		TradeType:      domain.TradeTypeImport,
		CustomerCode:   testutil.CustomerCode,
		CarrierCode:    testutil.SeaCarrierCode,
		OriginPortCode: testutil.OriginPort,
		DestPortCode:   testutil.DestPort,
		PackageQty:     10,
	})
	require.NoError(t, err)

	_, err = env.Services.Customs.CreateDeclaration(ctx, &domain.CreateDeclarationRequest{ShipmentID: shipment.ID, TradeType: domain.TradeTypeImport})
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "imports are declared after arrival")

	departShipment(t, env, shipment)
	_, err = transition(t, env, shipment, "ARRIVED")
	require.NoError(t, err)

	decl, err := env.Services.Customs.CreateDeclaration(ctx, &domain.CreateDeclarationRequest{
		ShipmentID: shipment.ID,
		TradeType:  domain.TradeTypeImport,
		BrokerCode: testutil.BrokerCode,
	})
	require.NoError(t, err)
	assert.Equal(t, "KRW", decl.Currency)

	_, err = env.Services.Customs.Submit(ctx, decl.ID)
	assert.True(t, errors.Is(err, domain.ErrValidation), "a declaration needs items")

	decl, err = env.Services.Customs.AddItem(ctx, decl.ID, &domain.DeclarationItemRequest{
		HSCode:   testutil.HSCodeMachinery,
		Quantity: testutil.Dec("100"),
		Amount:   testutil.Dec("10000000"),
	})
	require.NoError(t, err)
	assert.True(t, decl.DutyAmount.Equal(testutil.Dec("800000")))
	assert.True(t, decl.VATAmount.Equal(testutil.Dec("1000000")))
	assert.True(t, decl.TotalTax.Equal(testutil.Dec("1800000")))

	_, err = transition(t, env, shipment, "CLEARED")
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "import needs a cleared declaration")

	_, err = env.Services.Customs.Submit(ctx, decl.ID)
	require.NoError(t, err)
	assert.Len(t, env.Publisher.Events("customs.submitted"), 1)

	_, err = env.Services.Customs.RecordGatewayResponse(ctx, decl.ID, &domain.CustomsResponseRequest{Outcome: "INSPECTION", InspectionType: "physical"})
	require.NoError(t, err)
	_, err = env.Services.Customs.Clear(ctx, decl.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "pending inspection blocks clearance")

	inspection, err := env.Services.Customs.RecordInspection(ctx, decl.ID, &domain.InspectionResultRequest{Result: domain.InspectionPass})
	require.NoError(t, err)
	assert.Equal(t, "PHYSICAL", inspection.InspectionType)

	cleared, err := env.Services.Customs.Clear(ctx, decl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CustomsStatusCleared, cleared.Status)

	_, err = transition(t, env, shipment, "CLEARED")
	require.NoError(t, err)

	logs, err := env.Services.Customs.ListEDILogs(ctx, decl.ID)
	require.NoError(t, err)
	statuses := make(map[string]int)
	for _, l := range logs {
		statuses[l.Status]++
	}
	assert.Equal(t, 1, statuses[domain.EDIStatusSent])
	assert.Equal(t, 1, statuses[domain.EDIStatusAck])
}

func TestCustomsSubmit_GatewayFailureIsLogged(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)
	_, err := testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 1)
	require.NoError(t, err)

	decl, err := env.Services.Customs.CreateDeclaration(ctx, &domain.CreateDeclarationRequest{ShipmentID: shipment.ID, TradeType: domain.TradeTypeExport})
	require.NoError(t, err)
	_, err = env.Services.Customs.AddItem(ctx, decl.ID, &domain.DeclarationItemRequest{
		HSCode:   testutil.HSCodeMachinery,
		Amount:   testutil.Dec("500000"),
		DutyRate: testutil.DecPtr("0"),
	})
	require.NoError(t, err)

	env.Publisher.Err = errors.New("gateway down")
	submitted, err := env.Services.Customs.Submit(ctx, decl.ID)
	require.NoError(t, err, "the declaration is filed even when the gateway is down")
	assert.Equal(t, domain.CustomsStatusSubmitted, submitted.Status)

	logs, err := env.Services.Customs.ListEDILogs(ctx, decl.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.EDIStatusFailed, logs[0].Status)
	assert.Contains(t, logs[0].ErrorMessage, "gateway down")

	rejected, err := env.Services.Customs.Reject(ctx, decl.ID, "wrong HS code")
	require.NoError(t, err)
	assert.Equal(t, domain.CustomsStatusRejected, rejected.Status)
	reopened, err := env.Services.Customs.Reopen(ctx, decl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CustomsStatusDraft, reopened.Status)
}
