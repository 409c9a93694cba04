package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/docinsight/plugin/ai"
	"github.com/hrygo/docinsight/plugin/ai/agent"
	"github.com/hrygo/docinsight/plugin/ai/rag"
	"github.com/hrygo/docinsight/plugin/ai/session"
	"github.com/hrygo/docinsight/plugin/ai/timeout"
	"github.com/hrygo/docinsight/plugin/textextract"
	aierrors "github.com/hrygo/docinsight/server/internal/errors"
	"github.com/hrygo/docinsight/server/internal/observability"
)

// Dependencies are the collaborators the engine is built from.
type Dependencies struct {
	Store     session.Store
	Embedder  rag.Embedder
	LLM       ai.LLMService
	Extractor textextract.Extractor
	Metrics   *observability.Metrics // optional
	Logger    *slog.Logger           // optional, defaults to slog.Default()
}

type service struct {
	config         Config
	store          session.Store
	embedder       rag.Embedder
	dimension      int
	extractor      textextract.Extractor
	chunker        *rag.Chunker
	retriever      *rag.Retriever
	contextualizer *agent.Contextualizer
	synthesizer    *agent.Synthesizer
	ingestSem      *semaphore.Weighted
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewService creates the conversation engine.
func NewService(deps Dependencies, config Config) (Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("session store is required")
	case deps.Embedder == nil:
		return nil, errors.New("embedder is required")
	case deps.LLM == nil:
		return nil, errors.New("llm service is required")
	case deps.Extractor == nil:
		return nil, errors.New("text extractor is required")
	}
	config.applyDefaults()
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	// Embedders that know their vector size have it enforced on every index.
	var dimension int
	if sized, ok := deps.Embedder.(interface{ Dimensions() int }); ok {
		dimension = sized.Dimensions()
	}

	s := &service{
		config:         config,
		store:          deps.Store,
		embedder:       &timedEmbedder{Embedder: deps.Embedder, timeout: config.EmbedTimeout},
		dimension:      dimension,
		extractor:      deps.Extractor,
		chunker:        rag.NewChunker(config.ChunkSize, config.ChunkOverlap),
		retriever:      rag.NewRetriever(config.TopK),
		contextualizer: agent.NewContextualizer(deps.LLM),
		synthesizer:    agent.NewSynthesizer(deps.LLM),
		ingestSem:      semaphore.NewWeighted(config.MaxConcurrentIngestions),
		metrics:        deps.Metrics,
		logger:         deps.Logger,
	}
	s.logger.Debug("conversation service configured",
		"chunk_size", s.chunker.Size(),
		"chunk_overlap", s.chunker.Overlap(),
		"top_k", s.retriever.TopK(),
		"embedding_dimension", dimension,
		"history_retention", config.HistoryRetention)
	return s, nil
}

// Ingest implements Service.
func (s *service) Ingest(ctx context.Context, task string, docs []Document) (sessionID string, err error) {
	rc := observability.NewRequestContextWithID(s.logger, observability.RequestID(ctx), observability.OpIngest, "")
	defer func() {
		s.metrics.RecordOperation(observability.OpIngest, rc.Duration(), err)
		if aierrors.IsClientError(err) {
			rc.Info("ingest rejected", slog.String("error", err.Error()))
		} else if err != nil {
			rc.Error("ingest failed", err,
				slog.String(observability.LogFieldErrorCode, string(aierrors.GetCodeFromError(err, ""))),
				slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
		}
	}()

	if strings.TrimSpace(task) == "" {
		return "", aierrors.InvalidArgument("task is required")
	}
	files := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Filename == "" {
			continue
		}
		if ext, ok := textextract.Extension(doc.Filename); !ok {
			return "", aierrors.InvalidFileType(ext).WithContext("filename", doc.Filename)
		}
		files = append(files, doc)
	}
	if len(files) == 0 {
		return "", aierrors.InvalidArgument("at least one file is required")
	}

	if err := s.ingestSem.Acquire(ctx, 1); err != nil {
		return "", aierrors.ContextCanceled(err)
	}
	defer s.ingestSem.Release(1)

	// Only a done caller ctx is CONTEXT_CANCELED; hitting IngestTimeout is an
	// indexing error.
	ingestCtx, cancel := context.WithTimeout(ctx, s.config.IngestTimeout)
	defer cancel()

	text, err := s.extractAll(ingestCtx, files)
	if err != nil {
		if ctx.Err() != nil {
			return "", aierrors.ContextCanceled(err)
		}
		return "", err
	}

	chunks := s.chunker.Split(text)
	idx, err := rag.BuildIndex(ingestCtx, s.embedder, chunks, rag.BuildOptions{
		BatchSize:   s.config.EmbedBatchSize,
		Concurrency: s.config.EmbedConcurrency,
		Dimension:   s.dimension,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", aierrors.ContextCanceled(err)
		}
		return "", aierrors.IndexingError("failed to build index", err)
	}

	id := uuid.NewString()
	if err := s.store.Create(session.NewSession(id, task, idx, idx.Len())); err != nil {
		return "", aierrors.IndexingError("failed to publish session", err)
	}

	rc.WithSession(id).Info("session created",
		slog.Int("files", len(files)),
		slog.Int("passages", idx.Len()),
		slog.Int("dimension", idx.Dimension()),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
	return id, nil
}

// extractAll stages files in a scratch directory that is removed on return
// and concatenates their text, each file under a provenance header.
func (s *service) extractAll(ctx context.Context, files []Document) (string, error) {
	dir := filepath.Join(s.config.ScratchDir, shortuuid.New())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", aierrors.IndexingError("failed to create scratch directory", pkgerrors.Wrap(err, dir))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove scratch directory", "dir", dir, "error", err)
		}
	}()

	var sb strings.Builder
	hasText := false
	for i, doc := range files {
		name := filepath.Base(doc.Filename)
		path := filepath.Join(dir, fmt.Sprintf("%03d-%s", i, name))
		if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
			return "", aierrors.IndexingError("failed to stage upload", pkgerrors.Wrapf(err, "write %s", name))
		}

		text, err := s.extractor.ExtractFile(ctx, path)
		if err != nil {
			if errors.Is(err, textextract.ErrUnsupportedFormat) {
				ext, _ := textextract.Extension(name)
				return "", &aierrors.AIError{
					Code:    aierrors.ErrCodeInvalidFileType,
					Message: fmt.Sprintf("invalid file type: %s", ext),
					Cause:   err,
				}
			}
			return "", aierrors.IndexingError(fmt.Sprintf("failed to extract text from %s", name), err)
		}
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		fmt.Fprintf(&sb, "\n--- Content from %s ---\n%s\n", doc.Filename, text)
	}
	if !hasText {
		return "", aierrors.NoExtractableText()
	}
	return sb.String(), nil
}

// Turn implements Service.
func (s *service) Turn(ctx context.Context, sessionID, message string) (answer string, err error) {
	rc := observability.NewRequestContextWithID(s.logger, observability.RequestID(ctx), observability.OpTurn, sessionID)
	defer func() {
		s.metrics.RecordOperation(observability.OpTurn, rc.Duration(), err)
		if err != nil && !aierrors.IsClientError(err) {
			rc.Error("turn failed", err,
				slog.String(observability.LogFieldErrorCode, string(aierrors.GetCodeFromError(err, ""))),
				slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
		}
	}()

	if strings.TrimSpace(message) == "" {
		return "", aierrors.InvalidArgument("message is required")
	}
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return "", s.storeError(sessionID, err)
	}

	unlock, err := sess.LockTurn(ctx)
	if err != nil {
		return "", aierrors.ContextCanceled(err)
	}
	defer unlock()

	dropped, err := s.store.Truncate(sessionID, s.config.HistoryRetention)
	if err != nil {
		return "", s.storeError(sessionID, err)
	}
	turns, err := s.store.History(sessionID)
	if err != nil {
		return "", s.storeError(sessionID, err)
	}
	history := toMessages(turns)

	question, ctxTier := s.contextualizer.Contextualize(ctx, history, message)
	s.metrics.RecordTier("contextualize", string(ctxTier))

	results, err := s.retriever.Retrieve(ctx, sess.Index, question)
	if err != nil {
		if ctx.Err() != nil {
			return "", aierrors.ContextCanceled(err)
		}
		return "", s.unanswered(sessionID, message, pkgerrors.Wrap(err, "retrieve passages"))
	}

	answer, synTier, err := s.synthesizer.Synthesize(ctx, agent.SynthesisRequest{
		Message: message,
		History: history,
		Context: rag.JoinContext(results),
		Task:    sess.Task,
	})
	s.metrics.RecordTier("synthesize", string(synTier))
	if err != nil {
		if ctx.Err() != nil {
			return "", aierrors.ContextCanceled(err)
		}
		return "", s.unanswered(sessionID, message, err)
	}

	if err := s.store.AppendExchange(sessionID, message, answer); err != nil {
		return "", s.storeError(sessionID, err)
	}

	rc.Info("turn completed",
		slog.String("question", timeout.Truncate(question)),
		slog.String("contextualize_tier", string(ctxTier)),
		slog.String("synthesize_tier", string(synTier)),
		slog.Int("passages", len(results)),
		slog.Int("dropped_turns", dropped),
		slog.Int(observability.LogFieldMessageLen, len(message)),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
	return answer, nil
}

// unanswered records the user turn of a turn that produced no reply. The
// caller holds the session's turn lock.
func (s *service) unanswered(sessionID, message string, cause error) error {
	if err := s.store.AppendUnanswered(sessionID, message); err != nil {
		return s.storeError(sessionID, err)
	}
	return aierrors.SynthesisUnavailable(cause)
}

// History implements Service.
func (s *service) History(_ context.Context, sessionID string) ([]session.Turn, error) {
	turns, err := s.store.History(sessionID)
	if err != nil {
		return nil, s.storeError(sessionID, err)
	}
	return turns, nil
}

// Evict implements Service.
func (s *service) Evict(_ context.Context, sessionID string) error {
	if err := s.store.Evict(sessionID); err != nil {
		return s.storeError(sessionID, err)
	}
	s.logger.Info("session evicted on request", observability.LogFieldSessionID, sessionID)
	return nil
}

// Stats implements Service.
func (s *service) Stats() *observability.MetricsSnapshot {
	snap := s.metrics.Snapshot()
	snap.Sessions = s.store.Len()
	return snap
}

func (s *service) storeError(sessionID string, err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return aierrors.SessionNotFound(sessionID)
	}
	return pkgerrors.Wrap(err, "session store")
}

func toMessages(turns []session.Turn) []ai.Message {
	out := make([]ai.Message, len(turns))
	for i, t := range turns {
		if t.Role == session.RoleAssistant {
			out[i] = ai.AssistantMessage(t.Text)
		} else {
			out[i] = ai.UserMessage(t.Text)
		}
	}
	return out
}

// timedEmbedder gives every embedding request its own deadline.
type timedEmbedder struct {
	rag.Embedder
	timeout time.Duration
}

func (e *timedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.Embedder.Embed(ctx, text)
}

func (e *timedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.Embedder.EmbedBatch(ctx, texts)
}
