package pipeline

// Aggregate collects stage outputs for one enrichment run. Stages that
// declare an output key get their own namespace in the final record;
// every merged field is also written flat into the pipeline Context so
// later stage prompts can reference earlier stages' fields.
type Aggregate struct {
	byStage map[string]map[string]any
	flat    map[string]any
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{
		byStage: map[string]map[string]any{},
		flat:    map[string]any{},
	}
}

// Merge folds one parsed stage output into the aggregate and the shared
// context. Nulls are normalized to empty strings first so downstream
// consumers never see them. Merging is a flat key overwrite, so merging
// the same mapping twice is a no-op.
func (a *Aggregate) Merge(pctx *Context, outputKey string, parsed map[string]any) {
	if len(parsed) == 0 {
		return
	}

	cleaned := make(map[string]any, len(parsed))
	for k, v := range parsed {
		if v == nil {
			v = ""
		}
		cleaned[k] = v
	}

	if outputKey != "" {
		a.byStage[outputKey] = cleaned
	}
	for k, v := range cleaned {
		a.flat[k] = v
		pctx.Set(k, v)
	}
}

// Empty reports whether no stage produced any parseable output.
func (a *Aggregate) Empty() bool {
	return len(a.byStage) == 0 && len(a.flat) == 0
}

// Flat returns the flattened field map across all merged stage outputs.
func (a *Aggregate) Flat() map[string]any {
	return a.flat
}

// ByStage returns the output-key-namespaced view of the aggregate.
func (a *Aggregate) ByStage() map[string]map[string]any {
	return a.byStage
}
