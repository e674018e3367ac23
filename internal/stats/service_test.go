package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile-dental/clinic-platform/internal/clients"
	"github.com/brightsmile-dental/clinic-platform/internal/deals"
	"github.com/brightsmile-dental/clinic-platform/internal/leads"
	"github.com/brightsmile-dental/clinic-platform/internal/sources"
	"github.com/brightsmile-dental/clinic-platform/internal/treatmentplans"
)

type fixtures struct {
	aggregator *Aggregator
	leads      *leads.InMemoryRepository
	clients    *clients.InMemoryRepository
	deals      *deals.InMemoryRepository
	sources    *sources.InMemoryRepository
	plans      *treatmentplans.InMemoryRepository
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	leadRepo := leads.NewInMemoryRepository()
	clientRepo := clients.NewInMemoryRepository()
	dealRepo := deals.NewInMemoryRepository()
	sourceRepo := sources.NewInMemoryRepository()
	planRepo := treatmentplans.NewInMemoryRepository()
	return &fixtures{
		aggregator: NewAggregator(leadRepo, clientRepo, dealRepo, sourceRepo, planRepo, nil),
		leads:      leadRepo,
		clients:    clientRepo,
		deals:      dealRepo,
		sources:    sourceRepo,
		plans:      planRepo,
	}
}

func TestConversionReportAndCounterRecompute(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	require.NoError(t, f.sources.Create(ctx, &sources.Source{ID: "src-1", Name: "Google Ads"}))
	require.NoError(t, f.sources.Create(ctx, &sources.Source{ID: "src-2", Name: "Referral"}))

	seed := []*leads.Lead{
		{ID: "l1", Name: "A", Phone: "1", SourceID: "src-1"},
		{ID: "l2", Name: "B", Phone: "2", SourceID: "src-1"},
		{ID: "l3", Name: "C", Phone: "3", SourceID: "src-1", Status: leads.StatusLost},
		{ID: "l4", Name: "D", Phone: "4", SourceID: "src-2"},
		{ID: "l5", Name: "E", Phone: "5"},
	}
	for _, l := range seed {
		require.NoError(t, f.leads.Create(ctx, l))
	}
	// Converted status only moves through the conversion guard.
	require.NoError(t, f.leads.MarkConverted(ctx, "l1", "c1"))
	require.NoError(t, f.leads.MarkConverted(ctx, "l4", "c4"))

	report, err := f.aggregator.Conversion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalLeads)
	assert.Equal(t, 2, report.ConvertedLeads)
	assert.InDelta(t, 40.0, report.ConversionRate, 0.001)

	// Counters were written back onto the sources.
	src1, err := f.sources.GetByID(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, 3, src1.LeadsCount)
	assert.Equal(t, 1, src1.ConversionCount)
}

func TestRevenueReportROI(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	require.NoError(t, f.sources.Create(ctx, &sources.Source{ID: "src-1", Name: "Google Ads", TotalSpent: 1000}))
	require.NoError(t, f.leads.Create(ctx, &leads.Lead{ID: "l1", Name: "A", Phone: "1", SourceID: "src-1"}))
	require.NoError(t, f.clients.Create(ctx, &clients.Client{ID: "c1", Name: "A", SourceLeadID: "l1"}))

	now := time.Now().UTC()
	require.NoError(t, f.deals.Create(ctx, &deals.Deal{
		ID: "d1", ClientID: "c1", Status: deals.StatusWon, Amount: 3000, WonAt: &now,
	}))
	require.NoError(t, f.deals.Create(ctx, &deals.Deal{
		ID: "d2", ClientID: "c1", Status: deals.StatusLost, Amount: 500,
	}))

	report, err := f.aggregator.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, report.TotalRevenue, "lost deals must not count")
	assert.Equal(t, 1, report.TotalDeals)
	assert.InDelta(t, 200.0, report.ROI, 0.001)

	require.Len(t, report.BySource, 1)
	assert.Equal(t, 3000.0, report.BySource[0].Revenue)
	assert.InDelta(t, 200.0, report.BySource[0].ROI, 0.001)
}

func TestRevenueReportZeroSpendHasZeroROI(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	require.NoError(t, f.sources.Create(ctx, &sources.Source{ID: "src-1", Name: "Walk-in"}))

	report, err := f.aggregator.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.ROI)
	assert.Equal(t, 0.0, report.BySource[0].ROI)
}

func TestCollectionReport(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	require.NoError(t, f.plans.Create(ctx, &treatmentplans.TreatmentPlan{
		ID: "p1", PatientID: "pat-1", TotalCost: 1000, PaidAmount: 1000, PaymentStatus: treatmentplans.PaymentPaid,
	}))
	require.NoError(t, f.plans.Create(ctx, &treatmentplans.TreatmentPlan{
		ID: "p2", PatientID: "pat-1", TotalCost: 500, PaidAmount: 100, PaymentStatus: treatmentplans.PaymentPartiallyPaid,
	}))
	require.NoError(t, f.plans.Create(ctx, &treatmentplans.TreatmentPlan{
		ID: "p3", PatientID: "pat-2", TotalCost: 300, PaymentStatus: treatmentplans.PaymentUnpaid,
	}))

	report, err := f.aggregator.Collection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalPlans)
	assert.Equal(t, 1, report.PaidPlans)
	assert.InDelta(t, 33.333, report.CollectionRate, 0.01)
	assert.Equal(t, 1800.0, report.TotalBilled)
	assert.Equal(t, 1100.0, report.TotalCollected)
}

func TestEmptyStoreReportsZeroes(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	conv, err := f.aggregator.Conversion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, conv.ConversionRate)

	coll, err := f.aggregator.Collection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, coll.CollectionRate)
}
