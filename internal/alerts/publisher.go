// Package alerts publishes operational alerts to an SNS topic.
package alerts

import (
	"context"
	"time"

	"venue-signals/internal/common/aws"
	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/models"

	"github.com/goccy/go-json"
)

const (
	EventVenueRiskCritical = "venue_risk_critical"
	EventSourceState       = "prediction_source_state"
)

type Alert struct {
	Type      string                 `json:"type"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher sends alerts. A Publisher without an SNS client drops them.
type Publisher struct {
	sns    *aws.SNSClient
	topic  string
	logger logger.Logger
	now    func() time.Time
}

func NewPublisher(sns *aws.SNSClient, topicARN string, log logger.Logger) *Publisher {
	return &Publisher{
		sns:    sns,
		topic:  topicARN,
		logger: logger.ForComponent(log, "alerts"),
		now:    time.Now,
	}
}

// NewNoopPublisher returns a Publisher that only logs.
func NewNoopPublisher(log logger.Logger) *Publisher {
	return NewPublisher(nil, "", log)
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.sns != nil && p.topic != ""
}

// VenueRisk alerts when a venue's risk reached the critical tier. It reports
// whether an alert was sent.
func (p *Publisher) VenueRisk(ctx context.Context, risk models.RiskScore) (bool, error) {
	if risk.Tier != models.RiskCritical {
		return false, nil
	}
	err := p.publish(ctx, Alert{
		Type:    EventVenueRiskCritical,
		Subject: "Venue " + risk.VenueID + " reached critical negative-feedback risk",
		Data: map[string]interface{}{
			"venueId":              risk.VenueID,
			"overall":              risk.Overall,
			"tier":                 string(risk.Tier),
			"primaryIssues":        risk.PrimaryIssues,
			"recommendationImpact": risk.RecommendationImpact,
		},
	})
	return err == nil && p.Enabled(), err
}

// SourceStateChanged alerts on a prediction source circuit breaker change.
func (p *Publisher) SourceStateChanged(ctx context.Context, source, from, to string) error {
	return p.publish(ctx, Alert{
		Type:    EventSourceState,
		Subject: "Prediction source " + source + " is " + to,
		Data: map[string]interface{}{
			"source": source,
			"from":   from,
			"to":     to,
		},
	})
}

func (p *Publisher) publish(ctx context.Context, a Alert) error {
	if !p.Enabled() {
		p.logger.Debug("alert dropped, publisher disabled", map[string]interface{}{"type": a.Type})
		return nil
	}
	a.Timestamp = p.now().UTC()

	body, err := json.Marshal(a)
	if err != nil {
		return apperrors.NewAlertPublishFailedError(p.topic, err)
	}

	id, err := p.sns.PublishJSON(ctx, p.topic, truncateSubject(a.Subject), body, map[string]string{"type": a.Type})
	if err != nil {
		p.logger.Error("alert publish failed", map[string]interface{}{"type": a.Type, "error": err.Error()})
		return apperrors.NewAlertPublishFailedError(p.topic, err)
	}

	p.logger.Info("alert published", map[string]interface{}{"type": a.Type, "messageId": id})
	return nil
}

// SNS subjects are limited to 100 characters.
func truncateSubject(s string) string {
	if len(s) <= 100 {
		return s
	}
	return s[:97] + "..."
}
