// Package stats derives conversion, ROI and collection metrics by scanning
// the reconciled collections at read time. Nothing is cached, so the numbers
// are always consistent with the store at the cost of an O(n) scan.
package stats

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/brightsmile-dental/clinic-platform/internal/clients"
	"github.com/brightsmile-dental/clinic-platform/internal/deals"
	"github.com/brightsmile-dental/clinic-platform/internal/leads"
	"github.com/brightsmile-dental/clinic-platform/internal/sources"
	"github.com/brightsmile-dental/clinic-platform/internal/treatmentplans"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

var statsTracer = otel.Tracer("clinic.internal.stats")

// SourceConversion is the per-source slice of the conversion report.
type SourceConversion struct {
	SourceID        string  `json:"source_id"`
	SourceName      string  `json:"source_name"`
	LeadsCount      int     `json:"leads_count"`
	ConversionCount int     `json:"conversion_count"`
	ConversionRate  float64 `json:"conversion_rate"`
}

// ConversionReport summarizes the lead funnel.
type ConversionReport struct {
	TotalLeads     int                `json:"total_leads"`
	ConvertedLeads int                `json:"converted_leads"`
	ConversionRate float64            `json:"conversion_rate"`
	BySource       []SourceConversion `json:"by_source"`
}

// SourceROI is the per-source slice of the revenue report.
type SourceROI struct {
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	TotalSpent float64 `json:"total_spent"`
	Revenue    float64 `json:"revenue"`
	ROI        float64 `json:"roi"`
}

// RevenueReport summarizes revenue and marketing return.
type RevenueReport struct {
	TotalRevenue float64     `json:"total_revenue"`
	TotalDeals   int         `json:"total_deals"`
	TotalSpent   float64     `json:"total_spent"`
	ROI          float64     `json:"roi"`
	BySource     []SourceROI `json:"by_source"`
}

// CollectionReport summarizes treatment plan payment collection.
type CollectionReport struct {
	TotalPlans     int     `json:"total_plans"`
	PaidPlans      int     `json:"paid_plans"`
	CollectionRate float64 `json:"collection_rate"`
	TotalBilled    float64 `json:"total_billed"`
	TotalCollected float64 `json:"total_collected"`
}

// Aggregator computes read-time statistics over the reconciled collections.
// The Conversion call doubles as the recompute pass for the persisted source
// counters.
type Aggregator struct {
	leads   leads.Repository
	clients clients.Repository
	deals   deals.Repository
	sources sources.Repository
	plans   treatmentplans.Repository
	logger  *logging.Logger
}

// NewAggregator constructs the statistics aggregator.
func NewAggregator(leadRepo leads.Repository, clientRepo clients.Repository, dealRepo deals.Repository, sourceRepo sources.Repository, planRepo treatmentplans.Repository, logger *logging.Logger) *Aggregator {
	if leadRepo == nil || clientRepo == nil || dealRepo == nil || sourceRepo == nil || planRepo == nil {
		panic("stats: repositories required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{
		leads:   leadRepo,
		clients: clientRepo,
		deals:   dealRepo,
		sources: sourceRepo,
		plans:   planRepo,
		logger:  logger,
	}
}

// Conversion scans the lead funnel and writes the recomputed per-source
// counters back onto the source documents.
func (a *Aggregator) Conversion(ctx context.Context) (*ConversionReport, error) {
	ctx, span := statsTracer.Start(ctx, "stats.conversion")
	defer span.End()

	allLeads, err := a.leads.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list leads: %w", err)
	}

	report := &ConversionReport{TotalLeads: len(allLeads)}
	type tally struct{ total, converted int }
	bySource := make(map[string]*tally)
	for _, lead := range allLeads {
		if lead.Status == leads.StatusConverted {
			report.ConvertedLeads++
		}
		if lead.SourceID == "" {
			continue
		}
		t := bySource[lead.SourceID]
		if t == nil {
			t = &tally{}
			bySource[lead.SourceID] = t
		}
		t.total++
		if lead.Status == leads.StatusConverted {
			t.converted++
		}
	}
	report.ConversionRate = rate(report.ConvertedLeads, report.TotalLeads)

	allSources, err := a.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list sources: %w", err)
	}
	for _, src := range allSources {
		t := bySource[src.ID]
		if t == nil {
			t = &tally{}
		}
		if err := a.sources.UpdateCounters(ctx, src.ID, sources.Counters{
			LeadsCount:      t.total,
			ConversionCount: t.converted,
		}); err != nil {
			a.logger.Error("source counter recompute failed", "error", err, "source_id", src.ID)
		}
		report.BySource = append(report.BySource, SourceConversion{
			SourceID:        src.ID,
			SourceName:      src.Name,
			LeadsCount:      t.total,
			ConversionCount: t.converted,
			ConversionRate:  rate(t.converted, t.total),
		})
	}
	return report, nil
}

// Revenue scans won deals and source spend to compute ROI.
func (a *Aggregator) Revenue(ctx context.Context) (*RevenueReport, error) {
	ctx, span := statsTracer.Start(ctx, "stats.revenue")
	defer span.End()

	allDeals, err := a.deals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list deals: %w", err)
	}
	allClients, err := a.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list clients: %w", err)
	}
	allLeads, err := a.leads.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list leads: %w", err)
	}
	allSources, err := a.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list sources: %w", err)
	}

	report := &RevenueReport{}
	revenueByClient := make(map[string]float64)
	for _, deal := range allDeals {
		if deal.Status != deals.StatusWon {
			continue
		}
		report.TotalRevenue += deal.Amount
		report.TotalDeals++
		revenueByClient[deal.ClientID] += deal.Amount
	}

	// Attribute client revenue back to the acquisition source through the
	// originating lead.
	leadSource := make(map[string]string, len(allLeads))
	for _, lead := range allLeads {
		leadSource[lead.ID] = lead.SourceID
	}
	revenueBySource := make(map[string]float64)
	for _, client := range allClients {
		if client.SourceLeadID == "" {
			continue
		}
		srcID := leadSource[client.SourceLeadID]
		if srcID == "" {
			continue
		}
		revenueBySource[srcID] += revenueByClient[client.ID]
	}

	for _, src := range allSources {
		report.TotalSpent += src.TotalSpent
		report.BySource = append(report.BySource, SourceROI{
			SourceID:   src.ID,
			SourceName: src.Name,
			TotalSpent: src.TotalSpent,
			Revenue:    revenueBySource[src.ID],
			ROI:        roi(revenueBySource[src.ID], src.TotalSpent),
		})
	}
	report.ROI = roi(report.TotalRevenue, report.TotalSpent)
	return report, nil
}

// Collection scans treatment plans for payment collection rates.
func (a *Aggregator) Collection(ctx context.Context) (*CollectionReport, error) {
	ctx, span := statsTracer.Start(ctx, "stats.collection")
	defer span.End()

	allPlans, err := a.plans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list treatment plans: %w", err)
	}

	report := &CollectionReport{TotalPlans: len(allPlans)}
	for _, plan := range allPlans {
		report.TotalBilled += plan.TotalCost
		report.TotalCollected += plan.PaidAmount
		if plan.PaymentStatus == treatmentplans.PaymentPaid {
			report.PaidPlans++
		}
	}
	report.CollectionRate = rate(report.PaidPlans, report.TotalPlans)
	return report, nil
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func roi(revenue, spent float64) float64 {
	if spent <= 0 {
		return 0
	}
	return (revenue - spent) / spent * 100
}
