package actions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"terminator/internal/nlu"
	"terminator/internal/ports"
)

// Processes closes running programs by spoken name.
type Processes struct{}

type proc struct {
	pid  int32
	name string
}

func (Processes) Close(ctx context.Context, name string) (string, error) {
	all, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("list processes: %w", err)
	}

	var candidates []proc
	self := int32(os.Getpid())
	for _, p := range all {
		if p.Pid == self {
			continue
		}
		n, err := p.NameWithContext(ctx)
		if err != nil || n == "" {
			continue
		}
		candidates = append(candidates, proc{pid: p.Pid, name: n})
	}

	matched, err := matchProcesses(candidates, name)
	if err != nil {
		return "", err
	}

	var closed int
	for _, m := range matched {
		p, err := process.NewProcessWithContext(ctx, m.pid)
		if err != nil {
			continue
		}
		if err := p.TerminateWithContext(ctx); err != nil {
			continue
		}
		closed++
	}
	if closed == 0 {
		return "", fmt.Errorf("close %s: permission denied or already exited", matched[0].name)
	}
	return matched[0].name, nil
}

// matchProcesses returns every process with the best matching name: an exact
// match, else names that contain the query, else names contained in it.
func matchProcesses(procs []proc, query string) ([]proc, error) {
	q := strings.ReplaceAll(nlu.NormalizeName(query), " ", "")
	if q == "" {
		return nil, ports.ErrNotFound
	}

	key := func(p proc) string {
		n := strings.ToLower(p.name)
		n = strings.TrimSuffix(n, ".exe")
		return strings.ReplaceAll(nlu.NormalizeName(n), " ", "")
	}

	var exact, contains, contained []proc
	for _, p := range procs {
		k := key(p)
		switch {
		case k == "":
		case k == q:
			exact = append(exact, p)
		case strings.Contains(k, q):
			contains = append(contains, p)
		case len(k) >= 3 && strings.Contains(q, k):
			contained = append(contained, p)
		}
	}

	for _, group := range [][]proc{exact, contains, contained} {
		if len(group) == 0 {
			continue
		}
		name := key(group[0])
		var same []proc
		for _, p := range group {
			if key(p) == name {
				same = append(same, p)
			}
		}
		return same, nil
	}
	return nil, fmt.Errorf("process %q: %w", query, ports.ErrNotFound)
}
