package ui

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/presalectl/internal/chain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WizardResult holds the deployment answers collected by `env init`.
type WizardResult struct {
	NetworkID      string
	RPCAlgorithm   string
	RPCURL         string
	TokenAddress   string
	FactoryAddress string
	USDCAddress    string
}

type wizardStep int

const (
	stepNetwork wizardStep = iota
	stepAlgorithm
	stepRPC
	stepToken
	stepFactory
	stepUSDC
	stepDone
)

// textSteps are answered by typing rather than picking.
var textSteps = map[wizardStep]string{
	stepRPC:     "RPC URL",
	stepToken:   "Presale token address",
	stepFactory: "Presale factory address",
	stepUSDC:    "Payment token (USDC) address",
}

var algorithms = []string{"fastest", "failover"}

type wizardModel struct {
	step      wizardStep
	result    WizardResult
	networks  []chain.Network
	cursor    int
	input     string
	cancelled bool
}

func newWizard(defaults WizardResult) wizardModel {
	return wizardModel{result: defaults, networks: chain.Networks()}
}

func (m wizardModel) Init() tea.Cmd { return nil }

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	_, typing := textSteps[m.step]

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "enter":
		m.apply()
		m.step++
		m.cursor = 0
		m.input = ""
		if m.step == stepDone {
			return m, tea.Quit
		}
		return m, nil
	}

	if typing {
		switch {
		case key.Type == tea.KeyBackspace:
			if r := []rune(m.input); len(r) > 0 {
				m.input = string(r[:len(r)-1])
			}
		case key.Type == tea.KeyRunes:
			m.input += string(key.Runes)
		}
		return m, nil
	}

	switch key.String() {
	case "q":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices())-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m wizardModel) choices() []string {
	switch m.step {
	case stepNetwork:
		out := make([]string, len(m.networks))
		for i, n := range m.networks {
			out[i] = fmt.Sprintf("%s (%s)", n.DisplayName, n.ID)
		}
		return out
	case stepAlgorithm:
		return algorithms
	}
	return nil
}

// apply stores the current answer. Empty text input keeps the default.
func (m *wizardModel) apply() {
	switch m.step {
	case stepNetwork:
		m.result.NetworkID = m.networks[m.cursor].ID
	case stepAlgorithm:
		m.result.RPCAlgorithm = algorithms[m.cursor]
	default:
		// Strip whitespace and brackets picked up when pasting.
		v := strings.Trim(strings.TrimSpace(m.input), "[]\"'")
		if v == "" {
			return
		}
		switch m.step {
		case stepRPC:
			m.result.RPCURL = v
		case stepToken:
			m.result.TokenAddress = v
		case stepFactory:
			m.result.FactoryAddress = v
		case stepUSDC:
			m.result.USDCAddress = v
		}
	}
}

func (m wizardModel) current() string {
	switch m.step {
	case stepRPC:
		return m.result.RPCURL
	case stepToken:
		return m.result.TokenAddress
	case stepFactory:
		return m.result.FactoryAddress
	case stepUSDC:
		return m.result.USDCAddress
	}
	return ""
}

func (m wizardModel) View() string {
	var s string
	switch m.step {
	case stepNetwork:
		s = renderMenu("Which network is the presale deployed on?", m.choices(), m.cursor)
	case stepAlgorithm:
		s = renderMenu("How should presalectl pick between RPC URLs?", m.choices(), m.cursor)
	case stepDone:
		s = Success("Deployment captured")
	default:
		s = StyleTitle.Render(textSteps[m.step]) + "\n\n"
		if cur := m.current(); cur != "" {
			s += StyleMeta.Render("Enter keeps "+cur) + "\n"
		}
		s += "> " + StyleAddress.Render(m.input) + "█\n\n"
		s += StyleMeta.Render("Enter confirm · Esc cancel")
	}
	return StyleBorder.Render(s) + "\n"
}

func renderMenu(title string, items []string, cursor int) string {
	s := StyleTitle.Render(title) + "\n\n"
	for i, item := range items {
		icon := "  "
		style := lipgloss.NewStyle().Foreground(ColorValue)
		if i == cursor {
			icon = "▸ "
			style = StyleSelected
		}
		s += icon + style.Render(item) + "\n"
	}
	s += "\n" + StyleMeta.Render("↑/↓ navigate · Enter select · q quit")
	return s
}

// RunWizard asks for the deployment addresses and RPC settings, starting
// from defaults. It returns nil when the user cancels.
func RunWizard(defaults WizardResult) (*WizardResult, error) {
	p := tea.NewProgram(newWizard(defaults))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}
	fm := final.(wizardModel)
	if fm.cancelled {
		return nil, nil
	}
	return &fm.result, nil
}
