// Package score drives the classification stage: every paragraph of the
// cleaned corpus is rated 1-5 for fiscal alert tone by the configured LLM
// provider, concurrently and under a shared rate limit.
package score

import (
	"context"
	"strings"

	"github.com/jmcruz/fiscaltone/internal/llm"
	"github.com/jmcruz/fiscaltone/internal/model"
	"github.com/jmcruz/fiscaltone/internal/worker"
)

// Scorer classifies cleaned paragraphs through an LLM provider
type Scorer struct {
	provider llm.Provider
	limiter  *worker.Limiter
	workers  int
}

// NewScorer creates a new scorer. The rate limit applies across all workers;
// the provider's API sees at most that request rate regardless of pool size.
func NewScorer(provider llm.Provider, rl model.RateLimitConfig, workers int) *Scorer {
	if workers <= 0 {
		workers = 1
	}
	return &Scorer{
		provider: provider,
		limiter:  worker.NewLimiter(rl.RequestsPerSecond, rl.BurstSize),
		workers:  workers,
	}
}

type paragraphJob struct {
	idx    int
	record model.ScoreRecord
	scorer *Scorer
}

type paragraphResult struct {
	idx    int
	record model.ScoreRecord
	err    error
}

func (r *paragraphResult) GetError() error {
	return r.err
}

// Execute classifies one paragraph. Failures are recorded in the result so
// one bad paragraph never aborts the batch.
func (j *paragraphJob) Execute(ctx context.Context) worker.Result {
	record := j.record

	if err := j.scorer.limiter.WaitKey(ctx, "llm:"+j.scorer.provider.Name()); err != nil {
		record.Error = err.Error()
		return &paragraphResult{idx: j.idx, record: record, err: err}
	}

	resp, err := j.scorer.provider.Score(ctx, llm.ScoreRequest{Text: record.Text})
	if err != nil {
		record.Error = err.Error()
		return &paragraphResult{idx: j.idx, record: record, err: err}
	}

	record.FiscalRiskScore = resp.Score
	record.RiskIndex = resp.RiskIndex
	return &paragraphResult{idx: j.idx, record: record}
}

// ScoreRecords classifies every paragraph of the cleaned records and returns
// one ScoreRecord per paragraph in input order.
func (s *Scorer) ScoreRecords(ctx context.Context, records []model.CleanRecord) []model.ScoreRecord {
	var jobs []*paragraphJob
	for _, rec := range records {
		for _, para := range strings.Split(rec.Text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			jobs = append(jobs, &paragraphJob{
				idx: len(jobs),
				record: model.ScoreRecord{
					PDFFilename: rec.PDFFilename,
					Page:        rec.Page,
					Text:        para,
				},
				scorer: s,
			})
		}
	}

	if len(jobs) == 0 {
		return nil
	}

	pool := worker.NewPool(s.workers)
	pool.Start()
	for _, j := range jobs {
		pool.Submit(j)
	}
	results := pool.Wait()

	out := make([]model.ScoreRecord, len(jobs))
	for _, r := range results {
		pr := r.(*paragraphResult)
		out[pr.idx] = pr.record
	}
	return out
}

// Failed counts records whose classification errored.
func Failed(records []model.ScoreRecord) int {
	n := 0
	for _, r := range records {
		if r.Error != "" {
			n++
		}
	}
	return n
}

// MeanRiskIndex averages the risk index over successfully scored records.
// It is the headline number of a corpus run.
func MeanRiskIndex(records []model.ScoreRecord) float64 {
	sum := 0.0
	n := 0
	for _, r := range records {
		if r.Error == "" && r.FiscalRiskScore > 0 {
			sum += r.RiskIndex
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
