package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"costwatch/internal/core"
	"costwatch/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTotals struct {
	day   decimal.Decimal
	month decimal.Decimal
	err   error
}

func (f *fakeTotals) GetCurrentDayCost(ctx context.Context) (decimal.Decimal, error) {
	return f.day, f.err
}

func (f *fakeTotals) GetCurrentMonthCost(ctx context.Context) (decimal.Decimal, error) {
	return f.month, f.err
}

type fakeThresholdStore struct {
	daily   *decimal.Decimal
	monthly *decimal.Decimal
	getErr  error
	setErr  error
}

func (f *fakeThresholdStore) Get(ctx context.Context) (*dto.BudgetThresholds, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.daily == nil && f.monthly == nil {
		return nil, nil
	}
	return &dto.BudgetThresholds{DailyUSD: f.daily, MonthlyUSD: f.monthly}, nil
}

func (f *fakeThresholdStore) Set(ctx context.Context, dailyUSD, monthlyUSD *decimal.Decimal) (*dto.BudgetThresholds, error) {
	if f.setErr != nil {
		return nil, f.setErr
	}
	if dailyUSD != nil {
		f.daily = dailyUSD
	}
	if monthlyUSD != nil {
		f.monthly = monthlyUSD
	}
	return &dto.BudgetThresholds{DailyUSD: f.daily, MonthlyUSD: f.monthly, UpdatedAt: time.Now().UTC()}, nil
}

type fakeAlertSink struct {
	mu     sync.Mutex
	alerts []dto.BudgetAlert
}

func (f *fakeAlertSink) LogBudgetAlert(ctx context.Context, alert dto.BudgetAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decP(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func newWarmedMonitor(
	t *testing.T,
	totals *fakeTotals,
	store *fakeThresholdStore,
	sink *fakeAlertSink,
	now time.Time,
) *BudgetMonitor {
	t.Helper()
	m := NewBudgetMonitor(zap.NewNop(), store, sink)
	m.SetClock(func() time.Time { return now })
	require.NoError(t, m.WarmUp(context.Background(), totals))
	return m
}

func TestWarmUpRestoresTotalsAndAlertFlags(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	totals := &fakeTotals{day: dec(t, "83.20"), month: dec(t, "950")}
	store := &fakeThresholdStore{daily: decP(t, "80"), monthly: decP(t, "1000")}
	m := newWarmedMonitor(t, totals, store, &fakeAlertSink{}, now)

	status := m.GetStatus()
	assert.Equal(t, "83.2", status.DailyTotalUSD)
	assert.Equal(t, "950", status.MonthlyTotalUSD)
	assert.True(t, status.DailyAlertFired, "restored daily total above threshold must mark alert as fired")
	assert.False(t, status.MonthlyAlertFired, "950 of 1000 is below the monthly threshold")
	assert.InDelta(t, 104.0, status.DailyUtilizationPct, 0.01)
	assert.InDelta(t, 95.0, status.MonthlyUtilizationPct, 0.01)
}

func TestWarmUpFailsWhenStoreUnavailable(t *testing.T) {
	m := NewBudgetMonitor(zap.NewNop(), &fakeThresholdStore{}, &fakeAlertSink{})
	err := m.WarmUp(context.Background(), &fakeTotals{err: errors.New("mongo down")})
	require.Error(t, err)
}

func TestWarmUpFailsWhenThresholdsUnavailable(t *testing.T) {
	store := &fakeThresholdStore{getErr: errors.New("mongo down")}
	m := NewBudgetMonitor(zap.NewNop(), store, &fakeAlertSink{})
	err := m.WarmUp(context.Background(), &fakeTotals{})
	require.Error(t, err)
}

func TestRecordCostBeforeWarmUpIsDropped(t *testing.T) {
	sink := &fakeAlertSink{}
	m := NewBudgetMonitor(zap.NewNop(), &fakeThresholdStore{daily: decP(t, "0.01")}, sink)
	m.SetClock(func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) })

	// 暖機前的事件不得進入累計，也不得觸發告警
	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "5"))
	assert.Equal(t, 0, sink.count())

	require.NoError(t, m.WarmUp(context.Background(), &fakeTotals{}))
	status := m.GetStatus()
	assert.Equal(t, "0", status.DailyTotalUSD)
	assert.Equal(t, uint64(0), status.EventsProcessed)
}

func TestBreachFiresExactlyOncePerPeriod(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	totals := &fakeTotals{day: dec(t, "75"), month: dec(t, "75")}
	store := &fakeThresholdStore{daily: decP(t, "80")}
	sink := &fakeAlertSink{}
	m := newWarmedMonitor(t, totals, store, sink, now)

	// 75 + 10 = 85 跨越 80 → 觸發一次
	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "10"))
	assert.Equal(t, 1, sink.count())
	assert.True(t, m.GetStatus().DailyAlertFired)

	// 85 + 5 = 90 仍超標 → 不得再觸發
	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "5"))
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, "90", m.GetStatus().DailyTotalUSD)
}

func TestExactThresholdDoesNotFire(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeThresholdStore{daily: decP(t, "80")}
	sink := &fakeAlertSink{}
	m := newWarmedMonitor(t, &fakeTotals{day: dec(t, "70")}, store, sink, now)

	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "10"))
	assert.Equal(t, 0, sink.count(), "total equal to threshold must not fire")
	assert.False(t, m.GetStatus().DailyAlertFired)

	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "0.01"))
	assert.Equal(t, 1, sink.count())
}

func TestNoThresholdNeverFires(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sink := &fakeAlertSink{}
	m := newWarmedMonitor(t, &fakeTotals{}, &fakeThresholdStore{}, sink, now)

	m.RecordCost(context.Background(), core.CostTypeDocument, dec(t, "99999"))
	assert.Equal(t, 0, sink.count())
	status := m.GetStatus()
	assert.Nil(t, status.DailyThresholdUSD)
	assert.Zero(t, status.DailyUtilizationPct)
}

func TestDailyRolloverResetsDayKeepsMonth(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)
	store := &fakeThresholdStore{daily: decP(t, "80")}
	sink := &fakeAlertSink{}
	m := newWarmedMonitor(t, &fakeTotals{day: dec(t, "85"), month: dec(t, "300")}, store, sink, now)
	require.True(t, m.GetStatus().DailyAlertFired)

	// 跨過 UTC 午夜
	now = time.Date(2026, 3, 11, 0, 5, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	status := m.GetStatus()
	assert.Equal(t, "0", status.DailyTotalUSD)
	assert.False(t, status.DailyAlertFired, "rollover must clear the daily alert flag")
	assert.Equal(t, "300", status.MonthlyTotalUSD, "monthly total survives a day boundary")
	assert.Empty(t, status.DailyByType)
}

func TestMonthlyRolloverResetsBothPeriods(t *testing.T) {
	now := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	m := newWarmedMonitor(t, &fakeTotals{day: dec(t, "12"), month: dec(t, "500")}, &fakeThresholdStore{}, &fakeAlertSink{}, now)

	now = time.Date(2026, 4, 1, 1, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })
	m.Rollover()

	status := m.GetStatus()
	assert.Equal(t, "0", status.DailyTotalUSD)
	assert.Equal(t, "0", status.MonthlyTotalUSD)
}

func TestRolloverSkipsMissedBoundariesWithoutReplay(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := newWarmedMonitor(t, &fakeTotals{day: dec(t, "40"), month: dec(t, "400")}, &fakeThresholdStore{}, &fakeAlertSink{}, now)

	// 模擬長時間閒置，一次跨過多個日與月邊界
	now = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	status := m.GetStatus()
	assert.Equal(t, "0", status.DailyTotalUSD)
	assert.Equal(t, "0", status.MonthlyTotalUSD)

	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "3"))
	assert.Equal(t, "3", m.GetStatus().DailyTotalUSD)
}

func TestRecordCostAccumulatesByType(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := newWarmedMonitor(t, &fakeTotals{}, &fakeThresholdStore{}, &fakeAlertSink{}, now)

	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "0.06"))
	m.RecordCost(context.Background(), core.CostTypeDocument, dec(t, "0.50"))
	m.RecordCost(context.Background(), core.CostTypeLLM, dec(t, "0.04"))

	status := m.GetStatus()
	assert.Equal(t, "0.6", status.DailyTotalUSD)
	assert.Equal(t, "0.1", status.DailyByType["llm"])
	assert.Equal(t, "0.5", status.DailyByType["document"])
	assert.Equal(t, uint64(3), status.EventsProcessed)
}

func TestUpdateThresholdsClearsAlertWhenRaisedAboveTotal(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeThresholdStore{daily: decP(t, "80")}
	sink := &fakeAlertSink{}
	m := newWarmedMonitor(t, &fakeTotals{day: dec(t, "85")}, store, sink, now)
	require.True(t, m.GetStatus().DailyAlertFired)

	updated, err := m.UpdateThresholds(context.Background(), decP(t, "200"), nil)
	require.NoError(t, err)
	require.NotNil(t, updated.DailyUSD)
	assert.Equal(t, "200", updated.DailyUSD.String())
	assert.False(t, m.GetStatus().DailyAlertFired, "raising the threshold above the total clears the alert")
}

func TestUpdateThresholdsRejectsNegative(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeThresholdStore{daily: decP(t, "80")}
	m := newWarmedMonitor(t, &fakeTotals{}, store, &fakeAlertSink{}, now)

	_, err := m.UpdateThresholds(context.Background(), decP(t, "-1"), nil)
	require.Error(t, err)

	status := m.GetStatus()
	require.NotNil(t, status.DailyThresholdUSD)
	assert.Equal(t, "80", *status.DailyThresholdUSD, "rejected update must keep the previous threshold")
}

func TestUpdateThresholdsKeepsStateOnPersistFailure(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeThresholdStore{daily: decP(t, "80"), setErr: errors.New("mongo down")}
	m := newWarmedMonitor(t, &fakeTotals{}, store, &fakeAlertSink{}, now)

	_, err := m.UpdateThresholds(context.Background(), decP(t, "120"), nil)
	require.Error(t, err)
	assert.Equal(t, "80", *m.GetStatus().DailyThresholdUSD)
}

func TestBudgetSnapshotExposesGaugeValues(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeThresholdStore{daily: decP(t, "100"), monthly: decP(t, "1000")}
	m := newWarmedMonitor(t, &fakeTotals{day: dec(t, "25"), month: dec(t, "250")}, store, &fakeAlertSink{}, now)
	m.RecordCost(context.Background(), core.CostTypeEmbedding, dec(t, "5"))

	snapshot := m.BudgetSnapshot()
	assert.InDelta(t, 30.0, snapshot.DailyTotal, 0.0001)
	assert.InDelta(t, 255.0, snapshot.MonthlyTotal, 0.0001)
	assert.InDelta(t, 100.0, snapshot.DailyThreshold, 0.0001)
	assert.InDelta(t, 30.0, snapshot.DailyUtilPct, 0.01)
	assert.InDelta(t, 5.0, snapshot.DailyByType["embedding"], 0.0001)
	assert.Equal(t, uint64(1), snapshot.EventsProcessed)
}

func TestConcurrentRecordCostLosesNothing(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := newWarmedMonitor(t, &fakeTotals{}, &fakeThresholdStore{}, &fakeAlertSink{}, now)

	const workers = 50
	const perWorker = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.RecordCost(context.Background(), core.CostTypeMessaging, dec(t, "0.01"))
			}
		}()
	}
	wg.Wait()

	status := m.GetStatus()
	assert.Equal(t, "10", status.DailyTotalUSD)
	assert.Equal(t, uint64(workers*perWorker), status.EventsProcessed)
}
