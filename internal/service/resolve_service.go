package service

import (
	"context"

	"resume-qa-be/internal/dto"
	"resume-qa-be/internal/entity"
	"resume-qa-be/pkg/rag/resolve"
)

type Resolver interface {
	Resolve(ctx context.Context, q entity.Question) (*resolve.Resolution, error)
	Stats(ctx context.Context) resolve.Stats
}

type IResolveService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	Stats(ctx context.Context) *dto.StatsResponse
}

type resolveService struct {
	resolver Resolver
}

func NewResolveService(resolver Resolver) IResolveService {
	return &resolveService{resolver: resolver}
}

func (s *resolveService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	turns := make([]entity.Turn, 0, len(req.Context))
	for _, t := range req.Context {
		turns = append(turns, entity.Turn{Role: t.Role, Content: t.Content})
	}

	q, err := entity.NewQuestion(req.Question, req.Language, turns)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}

	trace := make([]string, 0, len(res.Trace))
	for _, st := range res.Trace {
		trace = append(trace, string(st))
	}

	sources := res.Answer.SourceIds
	if sources == nil {
		sources = []string{}
	}

	return &dto.AskResponse{
		Answer:       res.Answer.FinalText,
		Confidence:   res.Answer.Confidence,
		Status:       string(res.Answer.Status),
		Action:       string(res.Answer.Action),
		Sources:      sources,
		Origin:       string(res.Origin),
		Trace:        trace,
		CacheScore:   res.CacheScore,
		EscalationId: res.EscalationId,
		Degraded:     res.Degraded,
		LatencyMs:    res.Latency.Milliseconds(),
	}, nil
}

func (s *resolveService) Stats(ctx context.Context) *dto.StatsResponse {
	st := s.resolver.Stats(ctx)
	return &dto.StatsResponse{
		Requests:         st.Requests,
		CacheHits:        st.CacheHits,
		CacheHitRate:     st.CacheHitRate,
		DedupHits:        st.DedupHits,
		CacheSize:        st.CacheSize,
		AverageLatencyMs: st.AverageLatency.Milliseconds(),
		Escalations:      st.Escalations,
		Admissions:       st.Admissions,
	}
}
