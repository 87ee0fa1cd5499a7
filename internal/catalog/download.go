package catalog

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

// Download fetches a batch of sources into the queue by spawning the
// configured protocol command once.
//
// The rendered source URLs are written one per line to a temporary file
// whose path is exposed to the child as ORBIT_DOWNLOAD_LIST; the queue
// root is exposed as ORBIT_QUEUE. The command is expected to unpack each
// fetched release into its own directory under the queue. Per-URL
// parallelism, retries, and authentication are the command's business.
func Download(ctx *orbit.Context, sources []*ip.Source) error {
	if len(sources) == 0 {
		return nil
	}
	if ctx.Protocol == "" {
		return fmt.Errorf("no download protocol configured; set %s", orbit.EnvProtocol)
	}

	list, err := os.CreateTemp("", "orbit-download-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())
	for _, src := range sources {
		if _, err := fmt.Fprintln(list, src.String()); err != nil {
			list.Close()
			return err
		}
	}
	if err := list.Close(); err != nil {
		return err
	}

	fields := strings.Fields(ctx.Protocol)
	cmd := exec.Command(ctx.CommandName(fields[0]), fields[1:]...)
	cmd.Env = append(os.Environ(),
		orbit.EnvDownloadList+"="+list.Name(),
		orbit.EnvQueue+"="+ctx.QueuePath,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("protocol command %q: %w", ctx.Protocol, err)
	}
	return nil
}
