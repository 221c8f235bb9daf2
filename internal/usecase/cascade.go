package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cadvision/backend/internal/domain"
)

// Cascade stages, logged as the state machine advances. A failed external
// call never loops or retries here; it degrades to the next lower-
// confidence stage within the same request.
const (
	stageFingerprinting = "Fingerprinting"
	stageCacheLookup    = "CacheLookup"
	stageExtracting     = "Extracting"
	stageCodeExtraction = "CodeExtraction"
	stageEnriching      = "Enriching"
	stageInferring      = "Inferring"
	stageMapping        = "Mapping"
	stageScoring        = "Scoring"
	stageCachingResult  = "CachingResult"
	stageDone           = "Done"
)

// CascadeConfig holds configuration for the orchestrator
type CascadeConfig struct {
	FiscalTimeout      time.Duration
	EnableDebugLogging bool
}

// CascadeStats counts degraded external calls for observability. Values
// only grow; read them with Stats.
type CascadeStats struct {
	OpticalFaults uint64 `json:"optical_faults"`
	FiscalFaults  uint64 `json:"fiscal_faults"`
	CacheHits     uint64 `json:"cache_hits"`
	Completed     uint64 `json:"completed"`
	Rejected      uint64 `json:"rejected"`
}

// Orchestrator sequences the identification cascade: fingerprint, cache
// short-circuit, optical extraction, code extraction, fiscal enrichment,
// heuristic inference, vertical mapping, scoring, and result caching.
// It owns every intermediate entity for the request's lifetime; only the
// final IdentificationResult survives, written into the cache.
type Orchestrator struct {
	cache     domain.ResultCache
	optical   domain.OpticalExtractor
	fiscal    domain.FiscalCatalog
	catalog   domain.ProductRepository // optional local catalog tier
	extractor *CodeExtractor
	inference *InferenceEngine
	mapper    *SchemaMapper
	scorer    *ConfidenceScorer

	fiscalTimeout      time.Duration
	enableDebugLogging bool

	opticalFaults atomic.Uint64
	fiscalFaults  atomic.Uint64
	cacheHits     atomic.Uint64
	completed     atomic.Uint64
	rejected      atomic.Uint64
}

// NewOrchestrator creates a new cascade orchestrator with dependencies.
// catalog may be nil; the local-catalog tier is then skipped.
func NewOrchestrator(
	cache domain.ResultCache,
	optical domain.OpticalExtractor,
	fiscal domain.FiscalCatalog,
	catalog domain.ProductRepository,
	extractor *CodeExtractor,
	inference *InferenceEngine,
	mapper *SchemaMapper,
	scorer *ConfidenceScorer,
	config CascadeConfig,
) *Orchestrator {
	fiscalTimeout := config.FiscalTimeout
	if fiscalTimeout == 0 {
		fiscalTimeout = 15 * time.Second
	}
	return &Orchestrator{
		cache:              cache,
		optical:            optical,
		fiscal:             fiscal,
		catalog:            catalog,
		extractor:          extractor,
		inference:          inference,
		mapper:             mapper,
		scorer:             scorer,
		fiscalTimeout:      fiscalTimeout,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Identify runs one identification request through the cascade.
// It returns an error only for input rejections (unreadable image, bad
// vertical) or caller cancellation; adapter failures degrade internally
// and still produce a structured result.
func (o *Orchestrator) Identify(ctx context.Context, image []byte, vertical domain.Vertical) (*domain.IdentificationResult, error) {
	if len(image) == 0 {
		o.rejected.Add(1)
		return nil, fmt.Errorf("%w: empty image payload", domain.ErrInvalidImage)
	}

	o.logStage(stageFingerprinting)
	fp := Fingerprint(image)

	o.logStage(stageCacheLookup)
	if cached, err := o.cache.Lookup(ctx, fp); err == nil && cached != nil {
		o.cacheHits.Add(1)
		dup := cached.Clone()
		dup.Duplicate = true
		o.logStage(stageDone)
		return dup, nil
	}

	o.logStage(stageExtracting)
	raw, err := o.optical.Extract(ctx, image)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidImage) {
			// Unrecoverable input error: reject, cache nothing.
			o.rejected.Add(1)
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Adapter fault: degrade to the no-signal path.
		o.opticalFaults.Add(1)
		log.Printf("[CASCADE] optical adapter degraded: %v", err)
		raw = &domain.RawExtraction{}
	}

	o.logStage(stageCodeExtraction)
	branch := o.extractor.Extract(raw)

	var enriched *domain.EnrichedRecord
	var inferred *domain.InferredRecord
	codeValid := false

	if code, ok := branch.Code(); ok {
		codeValid = true
		o.logStage(stageEnriching)
		enriched = o.enrich(ctx, code)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if enriched == nil {
		o.logStage(stageInferring)
		inferred = o.inference.Infer(raw)
	}

	o.logStage(stageMapping)
	result := o.mapper.Map(vertical, enriched, inferred, raw)
	result.Fingerprint = fp
	if enriched == nil && codeValid {
		// Lookup found nothing but the code itself is checksum-valid:
		// keep it as the GTIN bonus signal on the inferred result.
		code, _ := branch.Code()
		result.GTIN = code.Digits
	}

	o.logStage(stageScoring)
	result.Confidence = o.scorer.Score(ScoreInput{
		OCRMean:       ocrMeanConfidence(raw),
		CodeValid:     codeValid,
		FiscalMatched: enriched != nil,
		Inferred:      inferred,
	})

	// A cancelled request must not leave a partial result behind.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	o.logStage(stageCachingResult)
	if err := o.cache.Store(ctx, fp, result); err != nil {
		// Caching is an optimization, not a correctness requirement.
		log.Printf("[CASCADE] cache store failed (ignored): %v", err)
	}

	o.completed.Add(1)
	o.logStage(stageDone)
	return result, nil
}

// enrich resolves an accepted code through the local catalog first, then
// the external fiscal adapter under a bounded timeout. Any failure returns
// nil so the cascade falls through to inference; the fault is counted,
// never raised past this boundary.
func (o *Orchestrator) enrich(ctx context.Context, code domain.CandidateCode) *domain.EnrichedRecord {
	if o.catalog != nil {
		if p, err := o.catalog.FindByGTIN(ctx, code.Digits); err == nil && p != nil {
			if o.enableDebugLogging {
				log.Printf("[CASCADE] local catalog hit for %s", code.Digits)
			}
			return &domain.EnrichedRecord{
				GTIN:     p.GTIN,
				Title:    p.Title,
				Brand:    p.Brand,
				Category: p.Category,
				NCM:      p.NCM,
				CEST:     p.CEST,
				Source:   "catalog",
			}
		}
	}

	fiscalCtx, cancel := context.WithTimeout(ctx, o.fiscalTimeout)
	defer cancel()

	rec, err := o.fiscal.Lookup(fiscalCtx, code.Digits)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			o.fiscalFaults.Add(1)
		}
		log.Printf("[CASCADE] fiscal enrichment degraded for %s: %v", code.Digits, err)
		return nil
	}
	rec.GTIN = code.Digits
	rec.Source = "fiscal-api"

	o.storeCatalogCopy(ctx, rec)
	return rec
}

// storeCatalogCopy writes a fiscal-API hit back into the local catalog so
// the next sighting of the same code resolves without the external call.
// Best effort only.
func (o *Orchestrator) storeCatalogCopy(ctx context.Context, rec *domain.EnrichedRecord) {
	if o.catalog == nil {
		return
	}
	p := &domain.Product{
		ID:         uuid.New(),
		Vertical:   domain.VerticalRetail,
		GTIN:       rec.GTIN,
		Title:      rec.Title,
		Brand:      rec.Brand,
		Category:   rec.Category,
		NCM:        rec.NCM,
		CEST:       rec.CEST,
		Confidence: 1.0,
	}
	if err := o.catalog.Save(ctx, p); err != nil {
		log.Printf("[CASCADE] catalog write-back failed (ignored): %v", err)
	}
}

// Stats returns a snapshot of the degradation counters.
func (o *Orchestrator) Stats() CascadeStats {
	return CascadeStats{
		OpticalFaults: o.opticalFaults.Load(),
		FiscalFaults:  o.fiscalFaults.Load(),
		CacheHits:     o.cacheHits.Load(),
		Completed:     o.completed.Load(),
		Rejected:      o.rejected.Load(),
	}
}

func (o *Orchestrator) logStage(stage string) {
	if o.enableDebugLogging {
		log.Printf("[CASCADE] -> %s", stage)
	}
}
