package services

import (
	"fmt"

	"badge-settlement-service/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// metricActions lists the actions that can change each count metric.
// Placement is absent: only settlements produce it.
var metricActions = map[models.Metric][]models.ActionKind{
	models.MetricGenerated: {models.ActionGenerate},
	models.MetricShared:    {models.ActionShare},
	models.MetricLikes:     {models.ActionShare},
	models.MetricComments:  {models.ActionComment},
	models.MetricPoints:    {models.ActionGenerate, models.ActionShare, models.ActionComment, models.ActionPointsUpdate},
}

// Evaluator turns activity into newly earned badges. It does no I/O.
type Evaluator struct {
	catalog *Catalog
}

func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate returns the badges whose criterion holds for snap, that action could
// have affected, and that are not in current. The empty set means nothing new.
func (e *Evaluator) Evaluate(current models.BadgeSet, snap models.ActivitySnapshot, action models.ActionKind) (models.BadgeSet, error) {
	if !action.Valid() {
		return nil, &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", action)}
	}
	return e.evaluate(current, snap, func(m models.Metric) bool {
		for _, a := range metricActions[m] {
			if a == action {
				return true
			}
		}
		return false
	})
}

// EvaluateAll checks every count and points criterion regardless of action.
func (e *Evaluator) EvaluateAll(current models.BadgeSet, snap models.ActivitySnapshot) (models.BadgeSet, error) {
	return e.evaluate(current, snap, func(m models.Metric) bool {
		return m != models.MetricPlacement
	})
}

func (e *Evaluator) evaluate(current models.BadgeSet, snap models.ActivitySnapshot, gate func(models.Metric) bool) (models.BadgeSet, error) {
	if err := validate.Struct(snap); err != nil {
		return nil, &ValidationError{Field: "snapshot", Reason: err.Error(), Err: err}
	}

	earned := models.BadgeSet{}
	for _, b := range e.catalog.All() {
		if current.Has(b.ID) || !gate(b.Criterion.Metric) {
			continue
		}
		value, ok := snap.Value(b.Criterion.Metric)
		if !ok {
			return nil, &ValidationError{Field: "criterion", Reason: fmt.Sprintf("badge %s has unknown metric %q", b.ID, b.Criterion.Metric)}
		}
		if value >= b.Criterion.Threshold {
			earned.Add(b.ID)
		}
	}
	return earned, nil
}

// EvaluatePlacement returns the placement badges a 1-based position qualifies
// for, minus those already in current.
func (e *Evaluator) EvaluatePlacement(current models.BadgeSet, position int) models.BadgeSet {
	earned := models.BadgeSet{}
	if position < 1 {
		return earned
	}
	for _, b := range e.catalog.All() {
		if b.Criterion.Metric != models.MetricPlacement || current.Has(b.ID) {
			continue
		}
		if int64(position) <= b.Criterion.Threshold {
			earned.Add(b.ID)
		}
	}
	return earned
}
