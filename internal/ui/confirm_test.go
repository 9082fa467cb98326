package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/presalectl/internal/wallet"
	"github.com/stretchr/testify/assert"
)

func TestPrompterConfirm(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("y\nno\nYES\n\n"), &out)

	assert.True(t, p.Confirm("Buy 20 tokens?"))
	assert.False(t, p.Confirm("again?"))
	assert.True(t, p.ConfirmDanger("Burn 5 tokens?"))
	assert.False(t, p.Confirm("empty answer?"))
	assert.Contains(t, out.String(), "Buy 20 tokens?")
	assert.Contains(t, out.String(), "[y/N]")
}

func TestPrompterApprove(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("y\nn\n"), &out)
	req := wallet.ApprovalRequest{Kind: wallet.ApprovalTransaction, Account: "0xabc", To: "0xfactory", Data: "0x095ea7b3000000", Gas: 60000}

	ok, err := p.Approve(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Sign call 0x095ea7b3 on 0xfactory")

	ok, _ = p.Approve(context.Background(), req)
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Approve(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out, "waiting")
	s.Stop()
	s.StopWithMsg("done")
	assert.Equal(t, "done\n", out.String())
}
