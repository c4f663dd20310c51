package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/messaging"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shipmentWithETD(etd time.Time) *domain.ShipmentRequest {
	return &domain.ShipmentRequest{
		TransportMode:  domain.TransportModeSea,
		TradeType:      domain.TradeTypeExport,
		CustomerCode:   testutil.CustomerCode,
		CarrierCode:    testutil.SeaCarrierCode,
		OriginPortCode: testutil.OriginPort,
		DestPortCode:   testutil.DestPort,
		ETD:            &etd,
	}
}

// ============================================================================
// Pre-alerts
// ============================================================================

func TestPreAlerts_ScheduledFromETDAndMovedWithIt(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Services.Notices.CreateSetting(ctx, &domain.PreAlertSettingRequest{
		CustomerCode:  testutil.CustomerCode,
		TransportMode: domain.TransportModeSea,
		Trigger:       domain.TriggerETD,
		OffsetDays:    -2,
		Recipients:    "ops@acme.test",
	})
	require.NoError(t, err)

	shipment, err := env.Services.Shipments.CreateShipment(ctx, shipmentWithETD(testutil.Date(2030, time.May, 10)))
	require.NoError(t, err)

	alerts, err := env.Services.Notices.ListPreAlerts(ctx, shipment.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].DueAt.Equal(testutil.Date(2030, time.May, 8)))
	assert.Equal(t, 3, alerts[0].MaxAttempts)

	_, err = env.Services.Shipments.UpdateDraft(ctx, shipment.ID, shipmentWithETD(testutil.Date(2030, time.May, 12)))
	require.NoError(t, err)
	alerts, err = env.Services.Notices.ListPreAlerts(ctx, shipment.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1, "rescheduling moves the pending alert")
	assert.True(t, alerts[0].DueAt.Equal(testutil.Date(2030, time.May, 10)))

	res, err := env.Services.Notices.DispatchDuePreAlerts(ctx, testutil.Date(2030, time.May, 9), 10)
	require.NoError(t, err)
	assert.Equal(t, service.DispatchResult{}, *res, "nothing due yet")

	res, err = env.Services.Notices.DispatchDuePreAlerts(ctx, testutil.Date(2030, time.May, 11), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Len(t, env.Publisher.Events(messaging.EventPreAlertDue), 1)

	res, err = env.Services.Notices.DispatchDuePreAlerts(ctx, testutil.Date(2030, time.May, 11), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent, "sent alerts are not sent again")
}

func TestPreAlerts_RetryThenFail(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Services.Notices.CreateSetting(ctx, &domain.PreAlertSettingRequest{
		CustomerCode: testutil.CustomerCode,
		Trigger:      domain.TriggerETD,
		Recipients:   "ops@acme.test",
		MaxAttempts:  2,
	})
	require.NoError(t, err)
	shipment, err := env.Services.Shipments.CreateShipment(ctx, shipmentWithETD(testutil.Date(2030, time.June, 1)))
	require.NoError(t, err)

	env.Publisher.Err = errors.New("smtp relay down")
	now := testutil.Date(2030, time.June, 2)

	res, err := env.Services.Notices.DispatchDuePreAlerts(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retry)

	res, err = env.Services.Notices.DispatchDuePreAlerts(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	alerts, err := env.Services.Notices.ListPreAlerts(ctx, shipment.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SendStatusFailed, alerts[0].SendStatus)
	assert.Equal(t, 2, alerts[0].Attempts)
	assert.Contains(t, alerts[0].LastError, "smtp relay down")
}

func TestCreateSetting_UnknownCustomer(t *testing.T) {
	env := testutil.NewEnv(t)

	_, err := env.Services.Notices.CreateSetting(context.Background(), &domain.PreAlertSettingRequest{
		CustomerCode: "NOBODY",
		Trigger:      domain.TriggerETA,
		Recipients:   "x@y.test",
	})
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))
}

// ============================================================================
// Arrival notices
// ============================================================================

func TestIssueArrivalNotice(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	_, err := env.Services.Notices.IssueArrivalNotice(ctx, &domain.ArrivalNoticeRequest{ShipmentID: shipment.ID, FreeTimeDays: 5})
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "not arrived yet")

	departShipment(t, env, shipment)
	arrived, err := transition(t, env, shipment, "ARRIVED")
	require.NoError(t, err)

	notice, err := env.Services.Notices.IssueArrivalNotice(ctx, &domain.ArrivalNoticeRequest{ShipmentID: shipment.ID, FreeTimeDays: 5})
	require.NoError(t, err)
	ata := arrived.ATA.UTC()
	expected := time.Date(ata.Year(), ata.Month(), ata.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 4)
	assert.True(t, notice.LastFreeDate.Equal(expected), "got %s", notice.LastFreeDate)
	assert.Equal(t, domain.SendStatusSent, notice.SendStatus)
	assert.True(t, service.ValidNumber(domain.PrefixArrivalNotice, notice.NoticeNo))
	assert.Len(t, env.Publisher.Events(messaging.EventArrivalNotice), 1)

	notices, err := env.Services.Notices.ListArrivalNotices(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Len(t, notices, 1)
}
