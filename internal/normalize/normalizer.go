package normalize

import (
	"github.com/GabrielNunesIT/log-indexer/internal/indices"
	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// Stats counts one Stream pass by classification.
type Stats struct {
	Events   int
	Filtered int
	Reports  int
	Errors   int
	Payloads int
}

// Normalizer turns raw log events into index actions. It holds no state
// across events: the same inputs always produce the same actions, so a
// stream can be re-run safely after a partial failure.
type Normalizer struct {
	prefix string
}

// New returns a Normalizer routing records to month-bucket indices under
// the given prefix.
func New(indexPrefix string) *Normalizer {
	return &Normalizer{prefix: indexPrefix}
}

// Normalize classifies one event and builds its index action. The
// returned Class reports which sub-parser ran; for ClassLifecycle the
// action is zero-valued and must be discarded, since lifecycle noise is
// filtered rather than indexed.
func (n *Normalizer) Normalize(sc model.StreamContext, ev model.RawLogEvent) (model.IndexAction, Class) {
	class := Classify(ev.Message)

	var fields model.NormalizedRecord
	switch class {
	case ClassLifecycle:
		return model.IndexAction{}, ClassLifecycle
	case ClassReport:
		fields = parseReport(ev.Message)
	case ClassError:
		fields = parseErrorLine(ev.Message)
	case ClassPayload:
		fields = parsePayload(ev.Message)
	}

	rec := model.NewNormalizedRecord(sc, ev.Time())
	rec.Merge(fields)

	return model.IndexAction{
		DocumentID: ev.ID,
		Index:      indices.Name(n.prefix, ev.Time()),
		Operation:  model.OpIndex,
		Body:       rec,
	}, class
}

// Stream lazily normalizes a batch, yielding one IndexAction per
// non-filtered event in delivery order. A yield error stops the stream
// and is returned; actions already yielded are not retracted.
// Re-invoking Stream with the same batch produces identical actions.
func (n *Normalizer) Stream(batch model.LogBatch, yield func(model.IndexAction) error) (Stats, error) {
	var st Stats
	for _, ev := range batch.Events {
		st.Events++

		action, class := n.Normalize(batch.Context, ev)
		switch class {
		case ClassLifecycle:
			st.Filtered++
			continue
		case ClassReport:
			st.Reports++
		case ClassError:
			st.Errors++
		case ClassPayload:
			st.Payloads++
		}

		if err := yield(action); err != nil {
			return st, err
		}
	}
	return st, nil
}
