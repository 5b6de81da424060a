package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"thoreinstein.com/crit/pkg/github"
)

func TestRunPRList(t *testing.T) {
	mockClient := &mockGHClient{
		isAuthenticated: true,
	}

	tests := []struct {
		name    string
		opts    ListOptions
		prs     []github.PRInfo
		listErr error
		wantErr bool
	}{
		{
			name: "list open PRs",
			opts: ListOptions{State: "open", Limit: 30},
			prs: []github.PRInfo{
				{Number: 1, Title: "PR 1", State: "OPEN", Author: "octocat", UpdatedAt: time.Now()},
			},
			wantErr: false,
		},
		{
			name:    "list no PRs",
			opts:    ListOptions{State: "open", Limit: 30},
			prs:     []github.PRInfo{},
			wantErr: false,
		},
		{
			name:    "list fails",
			opts:    ListOptions{State: "open", Limit: 30},
			listErr: errors.New("api unavailable"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOpts github.ListPRsOptions
			mockClient.listPRsFunc = func(ctx context.Context, opts github.ListPRsOptions) ([]github.PRInfo, error) {
				gotOpts = opts
				return tt.prs, tt.listErr
			}

			err := runPRList(tt.opts, mockClient)
			if (err != nil) != tt.wantErr {
				t.Errorf("runPRList() error = %v, wantErr %v", err, tt.wantErr)
			}

			if gotOpts.State != tt.opts.State {
				t.Errorf("ListPRs state = %q, want %q", gotOpts.State, tt.opts.State)
			}
			if gotOpts.Limit != tt.opts.Limit {
				t.Errorf("ListPRs limit = %d, want %d", gotOpts.Limit, tt.opts.Limit)
			}
		})
	}
}

func TestFormatState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state   string
		isDraft bool
		want    string
	}{
		{"OPEN", false, "open"},
		{"OPEN", true, "draft"},
		{"CLOSED", false, "closed"},
		{"CLOSED", true, "closed"},
		{"MERGED", false, "merged"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			if got := formatState(tt.state, tt.isDraft); got != tt.want {
				t.Errorf("formatState(%q, %v) = %q, want %q", tt.state, tt.isDraft, got, tt.want)
			}
		})
	}
}
