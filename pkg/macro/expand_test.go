package macro

import "testing"

func TestExpandArgs(t *testing.T) {
	tests := []struct {
		name string
		step string
		args []string
		want string
	}{
		{
			name: "no references unchanged",
			step: "submit approve Looks good",
			args: []string{"ignored"},
			want: "submit approve Looks good",
		},
		{
			name: "positional substitution",
			step: "comment $1 needs a guard on $2",
			args: []string{"12", "main.go"},
			want: "comment 12 needs a guard on main.go",
		},
		{
			name: "missing positional becomes empty",
			step: "file $2",
			args: []string{"only-one"},
			want: "file ",
		},
		{
			name: "star joins all args",
			step: "comment $*",
			args: []string{"tighten", "this", "loop"},
			want: "comment tighten this loop",
		},
		{
			name: "star with no args",
			step: "comment $*",
			args: nil,
			want: "comment ",
		},
		{
			name: "two digits read as one position plus literal",
			step: "file $10",
			args: []string{"a.go"},
			want: "file a.go0",
		},
		{
			name: "mixed references",
			step: "comment $1 $*",
			args: []string{"5", "fix"},
			want: "comment 5 5 fix",
		},
		{
			name: "dollar without digit untouched",
			step: "comment costs $ money",
			args: []string{"x"},
			want: "comment costs $ money",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandArgs(tt.step, tt.args); got != tt.want {
				t.Errorf("ExpandArgs(%q, %v) = %q, want %q", tt.step, tt.args, got, tt.want)
			}
		})
	}
}
