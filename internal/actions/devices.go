package actions

import (
	"context"
	"fmt"
	"strings"

	"terminator/internal/nlu"
	"terminator/internal/ports"
	"terminator/pkg/protocol"
)

// Hub is the request side of the device hub connection.
type Hub interface {
	Request(ctx context.Context, to, verb, noun string, args ...string) (protocol.Message, error)
}

// Devices maps spoken device names to hub nodes.
type Devices struct {
	hub   Hub
	nodes map[string]string
}

// ParseDevices reads "lamp=VERTEX,desk fan=VERTEX".
func ParseDevices(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, node, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(node) == "" {
			return nil, fmt.Errorf("device %q: want name=node", pair)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(node)
	}
	return out, nil
}

// NewDevices returns nil without a hub; a nil *Devices knows no device and
// reports ports.ErrNotConfigured.
func NewDevices(hub Hub, nodes map[string]string) *Devices {
	if hub == nil {
		return nil
	}
	d := &Devices{hub: hub, nodes: map[string]string{}}
	for name, node := range nodes {
		d.nodes[nlu.NormalizeName(name)] = node
	}
	return d
}

func (d *Devices) Known(device string) bool {
	if d == nil {
		return false
	}
	_, ok := d.nodes[nlu.NormalizeName(device)]
	return ok
}

func (d *Devices) Switch(ctx context.Context, device string, on bool) error {
	if d == nil {
		return ports.ErrNotConfigured
	}
	name := nlu.NormalizeName(device)
	node, ok := d.nodes[name]
	if !ok {
		return fmt.Errorf("device %q: %w", device, ports.ErrNotFound)
	}

	verb := "OFF"
	if on {
		verb = "ON"
	}
	noun := strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
	if _, err := d.hub.Request(ctx, node, verb, noun); err != nil {
		return fmt.Errorf("switch %s %s: %w", name, strings.ToLower(verb), err)
	}
	return nil
}
