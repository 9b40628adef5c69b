package trendcontext

// Builder wires the five stages together for one analysis run. The stages
// themselves stay independently usable; Builder only sequences them.
type Builder struct {
	cleaner   *Cleaner
	enricher  *Enricher
	optimizer *Optimizer
	assessor  *Assessor
	assembler *Assembler
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cleaner:   NewCleaner(cfg),
		enricher:  NewEnricher(cfg),
		optimizer: NewOptimizer(cfg),
		assessor:  NewAssessor(cfg),
		assembler: NewAssembler(cfg),
	}
}

// Prepared holds the per-run artifacts shared across tasks: the cleaned
// record, its insights, and its quality assessment. Enrich and Assess both
// depend only on the cleaned record; within one Prepare call they run
// sequentially, but callers running independent keywords may call Prepare
// concurrently since nothing here is shared or mutated.
type Prepared struct {
	Clean    CleanedTrendsRecord
	Insights EnrichedInsights
	Quality  QualityAssessment

	builder *Builder
}

// Prepare validates the structural contract and runs Clean, Enrich, and
// Assess once. A record without a keyword is a caller bug and returns
// *MalformedRecordError; sparse-but-well-formed records always succeed.
func (b *Builder) Prepare(raw RawTrendsRecord) (*Prepared, error) {
	if len(raw.Keyword) == 0 {
		return nil, &MalformedRecordError{Field: "keyword", Reason: "required field is absent"}
	}
	clean := b.cleaner.Clean(raw)
	return &Prepared{
		Clean:    clean,
		Insights: b.enricher.Enrich(clean),
		Quality:  b.assessor.Assess(clean),
		builder:  b,
	}, nil
}

// ContextFor builds the assembled payload for one task. It may be called
// once per task per run; views are never cached across tasks.
func (p *Prepared) ContextFor(task Task) (AssembledContext, error) {
	view, err := p.builder.optimizer.Optimize(p.Clean, p.Insights, task)
	if err != nil {
		return AssembledContext{}, err
	}
	return p.builder.assembler.Assemble(p.Clean.Keyword, view, p.Quality, p.Insights), nil
}
