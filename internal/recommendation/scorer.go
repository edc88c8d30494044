// Package recommendation ranks candidate venues for a user by fusing
// rule-based sub-scores with an optional ML ensemble behind a
// confidence-gated cascade.
package recommendation

import (
	"context"
	"fmt"
	"sort"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/common/validation"
	"venue-signals/internal/ensemble"
	"venue-signals/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultLimit = 10

type Config struct {
	Cascade      CascadeConfig
	Experiment   ExperimentConfig
	DefaultLimit int
	Weights      models.Weights
}

type ScoreRequest struct {
	User       models.UserProfile
	Candidates []models.Venue
	Context    models.RequestContext
	// Weights overrides the configured weights when set.
	Weights    *models.Weights
	Limit      int
}

// SourceReport summarises one ML source call for the caller.
type SourceReport struct {
	Name        string `json:"name"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	Predictions int    `json:"predictions"`
	LatencyMs   int64  `json:"latencyMs"`
}

type ScoreResult struct {
	RequestID          string                           `json:"requestId"`
	Candidates         []models.RecommendationCandidate `json:"candidates"`
	Ranked             []models.RecommendationCandidate `json:"-"`
	Tier               Tier                             `json:"tier"`
	Variant            Variant                          `json:"variant"`
	EnsembleConfidence float64                          `json:"ensembleConfidence"`
	Sources            []SourceReport                   `json:"sources,omitempty"`
}

type Scorer struct {
	ensemble *ensemble.Ensemble
	config   Config
	logger   logger.Logger
	tracer   trace.Tracer
}

// NewScorer builds a scorer. A nil or empty ensemble scores rule-only.
func NewScorer(ens *ensemble.Ensemble, cfg Config, log logger.Logger) *Scorer {
	cfg.Cascade = cfg.Cascade.withDefaults()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.Weights == (models.Weights{}) {
		cfg.Weights = models.DefaultWeights()
	}
	return &Scorer{
		ensemble: ens,
		config:   cfg,
		logger:   logger.ForComponent(log, "recommendation-scorer"),
		tracer:   otel.Tracer("venue-signals/recommendation"),
	}
}

// EffectiveLimit is the list length a request for limit receives.
func (s *Scorer) EffectiveLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultLimit
	}
	return limit
}

// TopN returns at most n leading candidates without copying.
func TopN(candidates []models.RecommendationCandidate, n int) []models.RecommendationCandidate {
	if n >= 0 && len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}

// Score ranks the candidates. Ensemble failures never fail the request: the
// rule-based path has no external dependency and always produces a result.
func (s *Scorer) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	weights, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "recommendation.score", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("user.id", req.User.UserID),
		attribute.Int("candidates", len(req.Candidates)),
	))
	defer span.End()

	limit := s.EffectiveLimit(req.Limit)

	result := &ScoreResult{
		RequestID: requestID,
		Tier:      TierRuleOnly,
		Variant:   s.config.Experiment.Assign(req.User.UserID),
	}

	rules := make([]ruleScores, len(req.Candidates))
	for i, v := range req.Candidates {
		rules[i] = scoreRules(req.User, req.Context, v, weights)
	}

	var ensembleRes *ensemble.Result
	if s.useEnsemble(result.Variant) && len(req.Candidates) > 0 {
		ensembleRes = s.predict(ctx, requestID, req)
		result.Tier = s.config.Cascade.selectTier(ensembleRes)
		result.EnsembleConfidence = ensembleRes.Confidence
		result.Sources = sourceReports(ensembleRes)
		metrics.EnsembleConfidence.Observe(ensembleRes.Confidence)

		if result.Tier == TierRuleFallback {
			s.logger.Warn("falling back to rule-based scoring", map[string]interface{}{
				"requestId":  requestID,
				"confidence": ensembleRes.Confidence,
				"panicked":   ensembleRes.Panicked,
				"error":      apperrors.NewEnsembleExhaustedError(len(ensembleRes.Outcomes)).Error(),
			})
		}
	}

	var mlScores, mlConfidence map[string]float64
	if result.Tier == TierMLPrimary || result.Tier == TierBlended {
		mlScores = ensembleRes.VenueScores()
		mlConfidence = maxConfidence(ensembleRes.Predictions)
	}

	state, _ := requestEmotion(req.User, req.Context)
	candidates := make([]models.RecommendationCandidate, len(req.Candidates))
	for i, v := range req.Candidates {
		ml, hasML := mlScores[v.ID]
		final, usedML := s.config.Cascade.fuse(result.Tier, rules[i].total, ml, hasML)

		var tags []string
		switch {
		case usedML:
			tags = append(tags, TagMLEnhanced)
		case result.Tier == TierMLPrimary || result.Tier == TierBlended:
			tags = append(tags, TagRuleBasedOnly)
		}
		if v.IsLocal {
			tags = append(tags, TagLocal)
		}

		candidates[i] = models.RecommendationCandidate{
			VenueID:            v.ID,
			VenueName:          v.Name,
			MatchScore:         final,
			EmotionalAlignment: rules[i].emotional,
			Justifications: justify(justificationInput{
				venue:        v,
				user:         req.User,
				state:        state,
				rules:        rules[i],
				final:        final,
				mlConfidence: mlConfidence[v.ID],
				hasML:        usedML,
			}),
			Tags: tags,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})
	result.Ranked = candidates
	result.Candidates = TopN(candidates, limit)

	metrics.RecommendationTier.WithLabelValues(string(result.Tier)).Inc()
	span.SetAttributes(
		attribute.String("tier", string(result.Tier)),
		attribute.Float64("ensemble.confidence", result.EnsembleConfidence),
	)

	s.logger.Info("recommendations scored", map[string]interface{}{
		"requestId":  requestID,
		"userId":     req.User.UserID,
		"candidates": len(req.Candidates),
		"returned":   len(result.Candidates),
		"tier":       string(result.Tier),
		"variant":    string(result.Variant),
	})

	return result, nil
}

// Validate reports whether Score would reject req as malformed.
func (s *Scorer) Validate(req ScoreRequest) error {
	_, err := s.validate(req)
	return err
}

func (s *Scorer) validate(req ScoreRequest) (models.Weights, error) {
	if err := validation.UserProfile(req.User); err != nil {
		return models.Weights{}, err
	}
	if err := validation.RequestContext(req.Context); err != nil {
		return models.Weights{}, err
	}
	if err := validation.Venues(req.Candidates); err != nil {
		return models.Weights{}, err
	}

	weights := s.config.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	if err := validation.Weights(weights); err != nil {
		return models.Weights{}, err
	}
	return weights, nil
}

func (s *Scorer) useEnsemble(v Variant) bool {
	return s.ensemble != nil && s.ensemble.Len() > 0 && v == VariantTreatment
}

// predict runs the ensemble and turns a panic into an exhausted result.
func (s *Scorer) predict(ctx context.Context, requestID string, req ScoreRequest) (res *ensemble.Result) {
	ctx, span := s.tracer.Start(ctx, "recommendation.ensemble")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ensemble.ErrTaskPanicked, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "ensemble panicked")
			s.logger.Error("ensemble panicked", map[string]interface{}{"requestId": requestID, "error": err})
			res = &ensemble.Result{Panicked: true}
		}
	}()

	pr := ensemble.BuildRequest(requestID, req.User, req.Candidates, req.Context)
	res = s.ensemble.Predict(ctx, pr)
	span.SetAttributes(attribute.Int("responded", res.Responded))
	return res
}

func sourceReports(res *ensemble.Result) []SourceReport {
	if len(res.Outcomes) == 0 {
		return nil
	}
	out := make([]SourceReport, len(res.Outcomes))
	for i, o := range res.Outcomes {
		r := SourceReport{
			Name:        o.Source,
			OK:          o.OK(),
			Predictions: len(o.Predictions),
			LatencyMs:   o.Latency.Milliseconds(),
		}
		if o.Err != nil {
			r.Error = o.Err.Error()
		}
		out[i] = r
	}
	return out
}

func maxConfidence(preds []models.EnsemblePrediction) map[string]float64 {
	out := make(map[string]float64, len(preds))
	for _, p := range preds {
		if p.Confidence > out[p.VenueID] {
			out[p.VenueID] = p.Confidence
		}
	}
	return out
}
