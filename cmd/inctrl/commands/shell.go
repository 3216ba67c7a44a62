package commands

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/inctrl/inctrl-go/pkg/scpi"
)

// maxShownBlock bounds the hex preview of a binary block reply.
const maxShownBlock = 32

// ShellHelp lists the console syntax.
const ShellHelp = `Lines are sent to the instrument as SCPI commands.

  <cmd>?          query, print the reply (e.g. *IDN?, :TIMebase:SCALe?)
  <cmd>           write without waiting
  sync <cmd>      write, then wait for *OPC?
  block <cmd>     query a binary block reply, print its size
  help            show this help
  quit            leave the console
`

// Exec runs one console line against cmd and returns the text to print.
func Exec(cmd scpi.Commander, line string) (string, error) {
	input := strings.TrimSpace(line)
	if input == "" {
		return "", nil
	}

	head, rest, _ := strings.Cut(input, " ")
	switch strings.ToLower(head) {
	case "block":
		data, err := cmd.QueryBytes(strings.TrimSpace(rest))
		if err != nil {
			return "", err
		}
		return formatBlock(data), nil

	case "sync":
		if err := cmd.WriteSync(strings.TrimSpace(rest)); err != nil {
			return "", err
		}
		return "OK", nil
	}

	if strings.HasSuffix(head, "?") {
		return cmd.Query(input)
	}
	return "", cmd.Write(input)
}

func formatBlock(data []byte) string {
	if len(data) <= maxShownBlock {
		return fmt.Sprintf("%d bytes: %s", len(data), hex.EncodeToString(data))
	}
	return fmt.Sprintf("%d bytes: %s...", len(data), hex.EncodeToString(data[:maxShownBlock]))
}
