package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMasterBL(t *testing.T, env *testutil.Env, shipment *domain.Shipment, no string) *domain.MasterBL {
	t.Helper()
	mbl, err := env.Services.Documents.CreateMasterBL(context.Background(), &domain.CreateMasterBLRequest{
		ShipmentID:    shipment.ID,
		MBLNo:         no,
		CarrierCode:   testutil.SeaCarrierCode,
		POLCode:       testutil.OriginPort,
		PODCode:       testutil.DestPort,
		PackageQty:    100,
		GrossWeightKg: testutil.Dec("12000"),
		VolumeCBM:     testutil.Dec("60"),
	})
	require.NoError(t, err)
	return mbl
}

// ============================================================================
// Master BL lifecycle
// ============================================================================

func TestMasterBL_SurrenderedCannotBeReissued(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	mbl := createMasterBL(t, env, shipment, "maeu123456")
	assert.Equal(t, "MAEU123456", mbl.MBLNo)
	assert.Equal(t, domain.DocumentStatusDraft, mbl.Status)

	issued, err := env.Services.Documents.IssueMasterBL(ctx, mbl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusIssued, issued.Status)
	assert.NotNil(t, issued.IssuedAt)

	surrendered, err := env.Services.Documents.SurrenderMasterBL(ctx, mbl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSurrendered, surrendered.Status)

	_, err = env.Services.Documents.IssueMasterBL(ctx, mbl.ID)
	var transition *domain.StateTransitionError
	require.True(t, errors.As(err, &transition), "got %v", err)
	assert.True(t, errors.Is(err, domain.ErrStateTransition))

	stored, err := env.Services.Documents.GetMasterBL(ctx, mbl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSurrendered, stored.Status)

	issuedEvents := env.Publisher.Events("document.issued")
	assert.Len(t, issuedEvents, 1)
}

func TestMasterBL_DraftCannotBeReleased(t *testing.T) {
	env := testutil.NewEnv(t)
	shipment := testutil.CreateSeaShipment(t, env.Services)
	mbl := createMasterBL(t, env, shipment, "MAEU000001")

	_, err := env.Services.Documents.ReleaseMasterBL(context.Background(), mbl.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition))
}

func TestMasterBL_RejectsAirShipmentAndUnknownCarrier(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	air := testutil.CreateAirShipment(t, env.Services)
	_, err := env.Services.Documents.CreateMasterBL(ctx, &domain.CreateMasterBLRequest{
		ShipmentID:  air.ID,
		MBLNo:       "X1",
		CarrierCode: testutil.SeaCarrierCode,
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	sea := testutil.CreateSeaShipment(t, env.Services)
	_, err = env.Services.Documents.CreateMasterBL(ctx, &domain.CreateMasterBLRequest{
		ShipmentID:  sea.ID,
		MBLNo:       "X2",
		CarrierCode: "NOPE",
	})
	var refErr *domain.ReferentialIntegrityError
	require.True(t, errors.As(err, &refErr), "got %v", err)
	assert.Equal(t, "carrierCode", refErr.Field)
}

// ============================================================================
// House BL consolidation
// ============================================================================

func TestHouseBL_TotalsMayNotExceedMaster(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	mbl := createMasterBL(t, env, shipment, "MAEU000002")

	first, warnings, err := env.Services.Documents.CreateHouseBL(ctx, &domain.CreateHouseBLRequest{
		ShipmentID:    shipment.ID,
		MBLID:         &mbl.ID,
		ShipperCode:   testutil.CustomerCode,
		PackageQty:    60,
		GrossWeightKg: testutil.Dec("7000"),
		VolumeCBM:     testutil.Dec("30"),
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotEmpty(t, first.HBLNo, "number is generated")
	assert.False(t, first.IsDirect())

	_, _, err = env.Services.Documents.CreateHouseBL(ctx, &domain.CreateHouseBLRequest{
		ShipmentID:    shipment.ID,
		MBLID:         &mbl.ID,
		PackageQty:    50,
		GrossWeightKg: testutil.Dec("1000"),
		VolumeCBM:     testutil.Dec("10"),
	})
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "packageQty", vErr.Field)

	_, _, err = env.Services.Documents.CreateHouseBL(ctx, &domain.CreateHouseBLRequest{
		ShipmentID:    shipment.ID,
		MBLID:         &mbl.ID,
		PackageQty:    40,
		GrossWeightKg: testutil.Dec("5000"),
		VolumeCBM:     testutil.Dec("30"),
	})
	require.NoError(t, err, "exactly filling the master is allowed")

	houses, err := env.Services.Documents.ListHouseBLs(ctx, mbl.ID)
	require.NoError(t, err)
	assert.Len(t, houses, 2)
}

func TestHouseBL_LineTotals(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	lines := []domain.CargoLineRequest{
		{Description: "Laptops", HSCode: testutil.HSCodeMachinery, PackageQty: 10, GrossWeightKg: testutil.Dec("100"), VolumeCBM: testutil.Dec("1.5")},
		{Description: "Chargers", PackageQty: 5, GrossWeightKg: testutil.Dec("20"), VolumeCBM: testutil.Dec("0.5")},
	}

	filled, warnings, err := env.Services.Documents.CreateHouseBL(ctx, &domain.CreateHouseBLRequest{
		ShipmentID: shipment.ID,
		Lines:      lines,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings, "an empty header takes the line totals")
	assert.Equal(t, 15, filled.PackageQty)
	assert.True(t, filled.GrossWeightKg.Equal(testutil.Dec("120")))
	assert.True(t, filled.IsDirect())

	mismatched, warnings, err := env.Services.Documents.CreateHouseBL(ctx, &domain.CreateHouseBLRequest{
		ShipmentID:    shipment.ID,
		PackageQty:    16,
		GrossWeightKg: testutil.Dec("120"),
		VolumeCBM:     testutil.Dec("2"),
		Lines:         lines,
	})
	require.NoError(t, err, "line mismatches are warnings, not errors")
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.RuleHouseLineTotals, warnings[0].Rule)

	stored, err := env.Services.Warnings.ListByEntity(ctx, "HouseBL", mismatched.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	_, _, err = env.Services.Documents.CreateHouseBL(ctx, &domain.CreateHouseBLRequest{
		ShipmentID: shipment.ID,
		Lines:      []domain.CargoLineRequest{{Description: "Mystery", HSCode: "999999", PackageQty: 1}},
	})
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))
}

// ============================================================================
// Air waybills
// ============================================================================

func TestMasterAWB_IssueConsumesStock(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	stock, err := env.Services.Scheduling.RegisterMAWBStock(ctx, &domain.RegisterMAWBStockRequest{
		CarrierCode: testutil.AirCarrierCode,
		StartSerial: 1234567,
		TotalQty:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, "180", stock.AirlinePrefix, "prefix comes from the carrier")

	newMAWB := func() *domain.MasterAWB {
		shipment := testutil.CreateAirShipment(t, env.Services)
		mawb, err := env.Services.Documents.CreateMasterAWB(ctx, &domain.CreateMasterAWBRequest{
			ShipmentID:    shipment.ID,
			CarrierCode:   testutil.AirCarrierCode,
			OriginCode:    testutil.OriginAirport,
			DestCode:      testutil.DestAirport,
			PackageQty:    10,
			GrossWeightKg: testutil.Dec("500"),
			VolumeCBM:     testutil.Dec("2"),
		})
		require.NoError(t, err)
		return mawb
	}

	first := newMAWB()
	issued, err := env.Services.Documents.IssueMasterAWB(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, issued.MAWBNo)
	assert.Equal(t, "180-12345675", *issued.MAWBNo)

	summary, err := env.Services.Scheduling.StockSummary(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.AvailableQty)
	assert.Equal(t, 1, summary.UsedQty)

	_, err = env.Services.Documents.IssueMasterAWB(ctx, newMAWB().ID)
	assert.True(t, errors.Is(err, domain.ErrCapacityExhausted))

	_, err = env.Services.Scheduling.RegisterMAWBStock(ctx, &domain.RegisterMAWBStockRequest{
		CarrierCode: testutil.AirCarrierCode,
		StartSerial: 1234567,
		TotalQty:    1,
	})
	assert.Error(t, err, "a serial range can only be registered once")
}

// ============================================================================
// Containers and irregularities
// ============================================================================

func TestAddContainer_GrossWeightCheck(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	mbl := createMasterBL(t, env, shipment, "MAEU200001")

	_, _, err := env.Services.Documents.CreateHouseBL(ctx, &domain.CreateHouseBLRequest{
		ShipmentID:    shipment.ID,
		MBLID:         &mbl.ID,
		PackageQty:    40,
		GrossWeightKg: testutil.Dec("5000"),
		VolumeCBM:     testutil.Dec("20"),
		Lines: []domain.CargoLineRequest{{
			ContainerNo:   "MSKU1234565",
			Description:   "Laptops",
			PackageQty:    40,
			GrossWeightKg: testutil.Dec("5000"),
			VolumeCBM:     testutil.Dec("20"),
		}},
	})
	require.NoError(t, err)

	filled, warnings, err := env.Services.Documents.AddContainer(ctx, &domain.AddContainerRequest{
		MBLID:         mbl.ID,
		ContainerNo:   "msku1234565",
		ContainerType: "40hc",
		PackageQty:    40,
		TareWeightKg:  testutil.Dec("3800"),
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "MSKU1234565", filled.ContainerNo)
	assert.Equal(t, "40HC", filled.ContainerType)
	assert.True(t, filled.GrossWeightKg.Equal(testutil.Dec("8800")), "got %s", filled.GrossWeightKg)

	heavy, warnings, err := env.Services.Documents.AddContainer(ctx, &domain.AddContainerRequest{
		MBLID:         mbl.ID,
		ContainerNo:   "TGHU7654321",
		ContainerType: "40GP",
		TareWeightKg:  testutil.Dec("3700"),
		GrossWeightKg: testutil.Dec("9000"),
	})
	require.NoError(t, err, "a weight mismatch warns but does not block")
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.RuleContainerGrossWeight, warnings[0].Rule)

	stored, err := env.Services.Warnings.ListByEntity(ctx, "Container", heavy.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	containers, err := env.Services.Documents.ListContainers(ctx, mbl.ID)
	require.NoError(t, err)
	assert.Len(t, containers, 2)
}

func TestAddContainer_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	shipment := testutil.CreateSeaShipment(t, env.Services)
	mbl := createMasterBL(t, env, shipment, "MAEU200002")

	tests := []struct {
		name   string
		mutate func(r *domain.AddContainerRequest)
	}{
		{"unknown container type", func(r *domain.AddContainerRequest) { r.ContainerType = "99ZZ" }},
		{"dangerous goods without UN number", func(r *domain.AddContainerRequest) { r.IsDangerous = true }},
		{"reefer without temperature", func(r *domain.AddContainerRequest) { r.ContainerType = "40RF"; r.IsReefer = true }},
		{"negative tare", func(r *domain.AddContainerRequest) { r.TareWeightKg = testutil.Dec("-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &domain.AddContainerRequest{
				MBLID:         mbl.ID,
				ContainerNo:   "MSKU0000001",
				ContainerType: "20GP",
				TareWeightKg:  testutil.Dec("2200"),
			}
			tt.mutate(req)
			_, _, err := env.Services.Documents.AddContainer(context.Background(), req)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestIrregularity_ReportAndResolve(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	mbl := createMasterBL(t, env, shipment, "MAEU200003")

	irr, warnings, err := env.Services.Documents.ReportIrregularity(ctx, &domain.ReportIrregularityRequest{
		ShipmentID:         shipment.ID,
		DocType:            domain.DocTypeMBL,
		DocID:              &mbl.ID,
		Kind:               "SHORT",
		ReportedPackageQty: 100,
		ActualPackageQty:   97,
		ReportedWeightKg:   testutil.Dec("12000"),
		ActualWeightKg:     testutil.Dec("11650"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IrregularityOpen, irr.Status)
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.RuleIrregularity, warnings[0].Rule)

	_, err = env.Services.Documents.ResolveIrregularity(ctx, irr.ID, "")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	resolved, err := env.Services.Documents.ResolveIrregularity(ctx, irr.ID, "three cartons found at CFS")
	require.NoError(t, err)
	assert.Equal(t, domain.IrregularityResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = env.Services.Documents.ResolveIrregularity(ctx, irr.ID, "again")
	assert.True(t, errors.Is(err, domain.ErrStateTransition))

	list, err := env.Services.Documents.ListIrregularities(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other := testutil.CreateSeaShipment(t, env.Services)
	_, _, err = env.Services.Documents.ReportIrregularity(ctx, &domain.ReportIrregularityRequest{
		ShipmentID: other.ID,
		DocType:    domain.DocTypeMBL,
		DocID:      &mbl.ID,
		Kind:       "DAMAGE",
	})
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity), "a document from another shipment is rejected")
}
