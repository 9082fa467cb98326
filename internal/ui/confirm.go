package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/presalectl/internal/wallet"
)

// Prompter asks yes/no questions on a line-oriented terminal.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// StdPrompter prompts on stderr and reads stdin.
func StdPrompter() *Prompter { return NewPrompter(os.Stdin, os.Stderr) }

// Confirm prompts with a yes/no question. Returns true for yes.
func (p *Prompter) Confirm(prompt string) bool {
	return p.ask(StyleWarning.Render(prompt))
}

// ConfirmDanger is like Confirm but styled for destructive actions.
func (p *Prompter) ConfirmDanger(prompt string) bool {
	return p.ask(StyleError.Render("⚠ " + prompt))
}

func (p *Prompter) ask(rendered string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s [y/N]: ", rendered)
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// Approve implements wallet.Approver, so headless commands ask on the
// terminal before exposing an account or signing.
func (p *Prompter) Approve(ctx context.Context, req wallet.ApprovalRequest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if req.Kind == wallet.ApprovalTransaction {
		fmt.Fprintln(p.out, Meta("  from "+req.Account))
	}
	return p.Confirm(req.Summary() + "?"), nil
}
