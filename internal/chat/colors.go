package chat

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"

	"github.com/adamavenir/office/internal/types"
)

var agentPalette = []lipgloss.Color{
	"39", "42", "99", "135", "172", "203", "208", "214",
}

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// senderStyle assigns each agent a stable color from the palette.
func (m *Model) senderStyle(sender string) lipgloss.Style {
	switch sender {
	case types.SenderUser:
		return userStyle
	case types.SenderSystem:
		return systemStyle
	}
	color, ok := m.colorMap[sender]
	if !ok {
		h := fnv.New32a()
		h.Write([]byte(sender))
		color = agentPalette[h.Sum32()%uint32(len(agentPalette))]
		m.colorMap[sender] = color
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}
