package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regenerativep/splinter-proxy/internal/core"
	"github.com/regenerativep/splinter-proxy/internal/proxydata"
	"github.com/regenerativep/splinter-proxy/internal/zoning"
)

func newTestProxy(t *testing.T) *core.Proxy {
	t.Helper()
	playerData, err := proxydata.Load(t.TempDir() + "/playerdata.json")
	require.NoError(t, err)
	return core.New(core.Config{ProxyAddress: "127.0.0.1:0"}, nil, zoning.NewZoner(), zoning.NewStaticResolver(nil), zap.NewNop(), playerData)
}

func TestDispatchUnknownCommand(t *testing.T) {
	registry := Default()
	proxy := newTestProxy(t)

	err := registry.Dispatch(proxy, "nosuchcommand", nil, ConsoleSender())
	require.Error(t, err)
	var unknown *UnknownCommandError
	require.ErrorAs(t, err, &unknown)
}

func TestKickCommandRequiresArgs(t *testing.T) {
	registry := Default()
	proxy := newTestProxy(t)

	err := registry.Dispatch(proxy, "kick", nil, ConsoleSender())
	require.Error(t, err)
}

func TestKickCommandUnknownUser(t *testing.T) {
	registry := Default()
	proxy := newTestProxy(t)

	err := registry.Dispatch(proxy, "kick", []string{"nobody"}, ConsoleSender())
	require.Error(t, err)
}

func TestConsoleSenderIdentifiesAsConsole(t *testing.T) {
	s := ConsoleSender()
	require.True(t, s.IsConsole)
	require.Equal(t, "console", s.Name)
}
