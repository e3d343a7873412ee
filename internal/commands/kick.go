package commands

import (
	"errors"
	"strings"

	"github.com/regenerativep/splinter-proxy/internal/core"
)

// KickCommand is the proxy's "kick" command: the first argument is the
// target username, the remaining arguments (if any) are joined into a
// kick message attributed to the sender.
var KickCommand = Command{
	Name: "kick",
	Action: func(proxy *core.Proxy, rawCmd string, args []string, sender Sender) error {
		if len(args) == 0 {
			return errors.New("commands: kick expects at least one argument")
		}
		name := args[0]
		client, ok := proxy.FindClientByName(name)
		if !ok {
			return errors.New("commands: failed to find client by the name \"" + name + "\"")
		}

		reason := "Kicked by " + sender.Name
		if len(args) > 1 {
			reason = reason + " because \"" + strings.Join(args[1:], " ") + "\""
		}
		proxy.KickClient(client.ProxyUUID, reason)
		return nil
	},
}
