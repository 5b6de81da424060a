package cmd

import (
	"context"

	"thoreinstein.com/crit/pkg/github"
)

type mockGHClient struct {
	github.Client
	isAuthenticated bool
	listPRsFunc     func(ctx context.Context, opts github.ListPRsOptions) ([]github.PRInfo, error)
	getPRFunc       func(ctx context.Context, number int) (*github.PRInfo, error)
}

func (m *mockGHClient) IsAuthenticated() bool {
	return m.isAuthenticated
}

func (m *mockGHClient) ListPRs(ctx context.Context, opts github.ListPRsOptions) ([]github.PRInfo, error) {
	if m.listPRsFunc != nil {
		return m.listPRsFunc(ctx, opts)
	}
	return []github.PRInfo{
		{Number: 1, Title: "PR 1", State: "OPEN", HeadBranch: "feat-1"},
		{Number: 2, Title: "PR 2", State: "OPEN", HeadBranch: "feat-2"},
	}, nil
}

func (m *mockGHClient) GetPR(ctx context.Context, number int) (*github.PRInfo, error) {
	if m.getPRFunc != nil {
		return m.getPRFunc(ctx, number)
	}
	return &github.PRInfo{Number: number, Title: "Test PR", State: "OPEN"}, nil
}
