package extract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Command invokes an external extractor program. The placeholders {input}
// and {output} in Args are substituted with the HTML path and the record
// output path before the program runs. Any extractor honoring the
// file-in/file-out contract can be plugged in this way, e.g.
//
//	Command{Name: "readabilipy", Args: []string{"-p", "-i", "{input}", "-o", "{output}"}}
//
// When neither placeholder appears, the two paths are appended in that
// order instead.
type Command struct {
	Name string
	Args []string
}

func (c *Command) Extract(ctx context.Context, htmlPath, outPath string) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("extractor command not configured")
	}
	args := make([]string, 0, len(c.Args)+2)
	var sawInput, sawOutput bool
	for _, a := range c.Args {
		if strings.Contains(a, "{input}") {
			sawInput = true
			a = strings.ReplaceAll(a, "{input}", htmlPath)
		}
		if strings.Contains(a, "{output}") {
			sawOutput = true
			a = strings.ReplaceAll(a, "{output}", outPath)
		}
		args = append(args, a)
	}
	// Commands without placeholders get the two paths appended.
	if !sawInput {
		args = append(args, htmlPath)
	}
	if !sawOutput {
		args = append(args, outPath)
	}
	log.Debug().Str("cmd", c.Name).Strs("args", args).Msg("running extractor")
	cmd := exec.CommandContext(ctx, c.Name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("extractor %s: %w: %s", c.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
