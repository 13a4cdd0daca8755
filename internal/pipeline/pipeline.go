package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-advisor/internal/config"
	"github.com/sells-group/property-advisor/internal/cost"
	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/pkg/anthropic"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

// User-facing terminal messages.
const (
	msgNoResults      = "I couldn't find any properties matching your criteria. Please try adjusting your search parameters."
	msgSearchFailed   = "I'm sorry, I ran into a problem while searching for properties. Please try again in a moment."
	msgRecommendError = "I'm sorry, I couldn't finish putting together your recommendations. Please try again in a moment."
)

// Request is the pipeline entry contract.
type Request struct {
	Query   string       `json:"query" yaml:"query"`
	History []model.Turn `json:"history,omitempty" yaml:"history,omitempty"`
	// Income is the buyer's annual income. Zero skips affordability.
	Income float64 `json:"income,omitempty" yaml:"income,omitempty"`
}

// Pipeline sequences intent extraction, retrieval, analysis and
// recommendation for one request at a time. A Pipeline holds no per-request
// state and may serve concurrent runs.
type Pipeline struct {
	cfg  *config.Config
	data realestate.Client
	ai   anthropic.Client

	model              string
	callTimeout        time.Duration
	analyzeLimit       int
	analyzeConcurrency int
	narrativeTopN      int

	costCalc *cost.Calculator
	metrics  *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the Prometheus collectors. Without it the collectors are
// created unregistered.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline over the given data and generation clients.
func New(cfg *config.Config, data realestate.Client, ai anthropic.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:                cfg,
		data:               data,
		ai:                 ai,
		model:              cfg.Anthropic.Model,
		callTimeout:        time.Duration(cfg.Pipeline.CallTimeoutSecs) * time.Second,
		analyzeLimit:       cfg.Pipeline.AnalyzeLimit,
		analyzeConcurrency: cfg.Pipeline.AnalyzeConcurrency,
		narrativeTopN:      cfg.Pipeline.NarrativeTopN,
		costCalc:           cost.NewCalculator(ratesFromConfig(cfg.Pricing)),
	}
	if p.analyzeLimit < 1 {
		p.analyzeLimit = 5
	}
	if p.narrativeTopN < 1 {
		p.narrativeTopN = 3
	}
	if p.analyzeConcurrency < 1 {
		p.analyzeConcurrency = 1
	}
	if p.analyzeConcurrency > p.analyzeLimit {
		p.analyzeConcurrency = p.analyzeLimit
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}
	return p
}

func ratesFromConfig(pc config.PricingConfig) cost.Rates {
	if len(pc.Anthropic) == 0 {
		return cost.DefaultRates()
	}
	rates := cost.Rates{Anthropic: make(map[string]cost.ModelRate, len(pc.Anthropic))}
	for name, mp := range pc.Anthropic {
		rates.Anthropic[name] = cost.ModelRate{
			Input:         mp.Input,
			Output:        mp.Output,
			CacheWriteMul: mp.CacheWriteMul,
			CacheReadMul:  mp.CacheReadMul,
		}
	}
	return rates
}

// Run executes the pipeline for one request. Stage failures are recorded on
// the returned state and never returned as errors. Run returns an error only
// when the data provider rejects the configured credentials or ctx is done;
// the state is returned in both cases.
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.PipelineState, error) {
	state := model.NewPipelineState(uuid.NewString(), req.Query)
	log := zap.L().With(zap.String("run_id", state.RunID))
	log.Info("pipeline: starting run", zap.Int("history_turns", len(req.History)))

	ledger := cost.NewLedger(p.costCalc)
	gen := &generator{
		client:  p.ai,
		model:   p.model,
		timeout: p.callTimeout,
		ledger:  ledger,
		metrics: p.metrics,
	}

	err := p.run(ctx, log, gen, state, req)
	if !state.Stage.Terminal() {
		log.Error("pipeline: run ended in a non-terminal stage", zap.String("stage", string(state.Stage)))
		if state.FinalResponse == "" {
			state.FinalResponse = msgRecommendError
		}
		p.mark(log, state, model.StageFailed, nil)
	}

	state.GenerationCalls, state.TotalTokens, state.TotalCost = ledger.Totals()
	p.metrics.Outcomes.WithLabelValues(string(state.Stage)).Inc()
	log.Info("pipeline: run finished",
		zap.String("stage", string(state.Stage)),
		zap.Int("listings", len(state.Listings)),
		zap.Int("recommendations", len(state.Recommendations)),
		zap.Int("errors", len(state.Errors)),
		zap.Int("tokens", state.TotalTokens),
		zap.Float64("cost_usd", state.TotalCost),
	)
	return state, err
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, gen *generator, state *model.PipelineState, req Request) error {
	// Start -> IntentResolved. Listing retrieval happens here.
	var searchErr error
	err := p.trackStage(ctx, log, state, model.StageIntentResolved, func() (map[string]any, error) {
		criteria, outcome, genErr := p.extractIntent(ctx, gen, req)
		state.Criteria = &criteria
		meta := map[string]any{"intent": string(outcome)}
		if genErr != nil && outcome == OutcomeGenerationFallback {
			state.AddError(model.StageIntentResolved, genErr)
		}

		if NeedsClarification(criteria) {
			state.NeedsClarification = true
			state.ClarificationQuestion = ClarificationQuestion(criteria)
			meta["clarify"] = true
			return meta, nil
		}

		listings, err := p.data.SearchListings(ctx, criteria.SearchParams())
		if err != nil {
			searchErr = err
			return meta, eris.Wrap(err, "pipeline: search listings")
		}
		state.SetListings(listings)
		meta["listings"] = len(state.Listings)
		return meta, nil
	})
	if err != nil {
		state.FinalResponse = msgSearchFailed
		p.mark(log, state, model.StageFailed, nil)
		if realestate.IsConfig(searchErr) {
			return searchErr
		}
		return ctx.Err()
	}

	if state.NeedsClarification {
		state.FinalResponse = state.ClarificationQuestion
		p.mark(log, state, model.StageClarify, nil)
		return nil
	}

	// Searching is a marker; the work already happened above.
	p.mark(log, state, model.StageSearching, map[string]any{"listings": len(state.Listings)})
	if len(state.Listings) == 0 {
		state.FinalResponse = msgNoResults
		p.mark(log, state, model.StageNoResults, nil)
		return nil
	}

	// Analyzing is non-fatal: a failure leaves whatever analyses completed.
	_ = p.trackStage(ctx, log, state, model.StageAnalyzing, func() (map[string]any, error) {
		records := p.analyze(ctx, gen, state.Listings, *state.Criteria)
		fallbacks := 0
		for _, rec := range records {
			if !state.SetAnalysis(rec) {
				log.Warn("pipeline: dropping analysis for unknown listing", zap.String("listing_id", rec.ListingID))
				continue
			}
			if rec.SummarySource != string(OutcomeParsed) {
				fallbacks++
			}
		}
		return map[string]any{"analyzed": len(state.Analyses), "summary_fallbacks": fallbacks}, nil
	})
	if ctx.Err() != nil {
		state.FinalResponse = msgRecommendError
		p.mark(log, state, model.StageFailed, nil)
		return ctx.Err()
	}

	// Recommending is fatal.
	err = p.trackStage(ctx, log, state, model.StageRecommending, func() (map[string]any, error) {
		recs, narrative := p.recommend(ctx, gen, state)
		state.Recommendations = recs
		state.FinalResponse = narrative
		return map[string]any{"recommendations": len(recs)}, nil
	})
	if err != nil {
		state.Recommendations = []model.Recommendation{}
		state.FinalResponse = msgRecommendError
		p.mark(log, state, model.StageFailed, nil)
		return ctx.Err()
	}

	p.mark(log, state, model.StageDone, nil)
	return nil
}

// trackStage runs fn as stage, recording its duration and outcome on the
// state. A panic inside fn is recovered and reported as the stage error.
func (p *Pipeline) trackStage(ctx context.Context, log *zap.Logger, state *model.PipelineState, stage model.Stage, fn func() (map[string]any, error)) (err error) {
	state.Stage = stage
	start := time.Now()

	var meta map[string]any
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = eris.Errorf("pipeline: stage %s panicked: %v", stage, r)
			}
		}()
		meta, err = fn()
	}()
	if err == nil && ctx.Err() != nil {
		err = eris.Wrapf(ctx.Err(), "pipeline: stage %s", stage)
	}

	elapsed := time.Since(start)
	result := model.StageResult{
		Stage:    stage,
		Status:   model.StageStatusComplete,
		Duration: elapsed.Milliseconds(),
		Metadata: meta,
	}

	if err != nil {
		result.Status = model.StageStatusFailed
		result.Error = err.Error()
		state.AddError(stage, err)
		log.Error("pipeline: stage failed",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", result.Duration),
			zap.Error(err),
		)
	} else {
		log.Info("pipeline: stage complete",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", result.Duration),
		)
	}

	state.Stages = append(state.Stages, result)
	p.metrics.Stages.WithLabelValues(string(stage), string(result.Status)).Inc()
	p.metrics.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	return err
}

// mark records a transition into a stage that does no work of its own.
func (p *Pipeline) mark(log *zap.Logger, state *model.PipelineState, stage model.Stage, meta map[string]any) {
	state.Stage = stage
	state.Stages = append(state.Stages, model.StageResult{
		Stage:    stage,
		Status:   model.StageStatusComplete,
		Metadata: meta,
	})
	p.metrics.Stages.WithLabelValues(string(stage), string(model.StageStatusComplete)).Inc()
	log.Debug("pipeline: entered stage", zap.String("stage", string(stage)))
}
