package scraper

import (
	"context"

	"pricehound/models"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

type fetchState int

const (
	stateTryDirect fetchState = iota
	stateTryRendered
	stateDone
)

func (s fetchState) String() string {
	switch s {
	case stateTryDirect:
		return "try_direct"
	case stateTryRendered:
		return "try_rendered"
	default:
		return "done"
	}
}

// nextFetchState moves to the rendered strategy when the direct one was blocked,
// timed out, came back empty or produced a page without candidate blocks.
// The rendered strategy is always final.
func nextFetchState(state fetchState, result FetchResult, blocks int) fetchState {
	if state != stateTryDirect {
		return stateDone
	}
	switch result.Outcome {
	case models.OutcomeBlocked, models.OutcomeTimeout, models.OutcomeEmptyBody:
		return stateTryRendered
	case models.OutcomeOK:
		if blocks == 0 {
			return stateTryRendered
		}
	}
	return stateDone
}

// Attempt is one strategy run inside a fallback sequence.
type Attempt struct {
	Result FetchResult
	Blocks int
}

// BlockCounter counts the candidate blocks of a document.
type BlockCounter func(doc *goquery.Document) int

// FallbackFetcher tries the direct fetcher first and the rendered one when needed.
// Each strategy runs at most once per call.
type FallbackFetcher struct {
	direct   Fetcher
	rendered Fetcher
	logger   *zap.Logger
}

// NewFallbackFetcher creates a fallback fetcher. rendered may be nil to disable the browser path.
func NewFallbackFetcher(direct, rendered Fetcher, logger *zap.Logger) *FallbackFetcher {
	return &FallbackFetcher{direct: direct, rendered: rendered, logger: logger.Named("fallback")}
}

// Fetch runs the fallback sequence for url and returns every attempt in order.
// The last attempt is the one whose document should be used.
func (f *FallbackFetcher) Fetch(ctx context.Context, source models.SourceDescriptor, url string, count BlockCounter) []Attempt {
	var attempts []Attempt
	state := stateTryDirect

	for state != stateDone {
		var fetcher Fetcher
		switch state {
		case stateTryDirect:
			fetcher = f.direct
		case stateTryRendered:
			fetcher = f.rendered
		}
		if fetcher == nil {
			f.logger.Debug("strategy unavailable", zap.String("state", state.String()), zap.String("source", string(source.ID)))
			break
		}

		result := fetcher.Fetch(ctx, source, url)
		blocks := 0
		if result.OK() {
			blocks = count(result.Document)
		}
		attempts = append(attempts, Attempt{Result: result, Blocks: blocks})

		next := nextFetchState(state, result, blocks)
		f.logger.Debug("fetch attempt",
			zap.String("source", string(source.ID)),
			zap.String("mode", string(result.Mode)),
			zap.String("outcome", string(result.Outcome)),
			zap.Int("blocks", blocks),
			zap.String("next", next.String()),
		)
		state = next
	}
	return attempts
}

// Last returns the final attempt, or a skipped attempt when none ran.
func Last(attempts []Attempt) Attempt {
	if len(attempts) == 0 {
		return Attempt{Result: FetchResult{Outcome: models.OutcomeSkipped}}
	}
	return attempts[len(attempts)-1]
}
