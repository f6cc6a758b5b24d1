package main

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/controller"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/telemetry"
)

// runShell drops into an interactive prompt for repeated discover/get/set
// commands against the transport ctl was opened on.
func runShell(ctl *controller.Controller, logger *telemetry.Logger) {
	sessionID := uuid.New().String()
	logger = logger.With("session", sessionID)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rdmctl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logger.Error("failed to start interactive shell", "error", err)
		return
	}
	defer rl.Close()

	logger.Info("interactive shell started")
	printShellHelp(rl)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		name := strings.ToLower(parts[0])
		args := parts[1:]

		switch name {
		case "help", "?":
			printShellHelp(rl)
		case "quit", "exit", "q":
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return
		default:
			if err := runSubcommand(ctl, name, args); err != nil {
				fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
			}
		}
	}
}

func printShellHelp(rl *readline.Instance) {
	fmt.Fprintln(rl.Stdout(), `
rdmctl commands:
  discover                     - run full discovery, listing every responding UID
  get-info <uid>                - GET DEVICE_INFO
  get-address <uid>              - GET DMX_START_ADDRESS
  set-address <uid> <1-512>      - SET DMX_START_ADDRESS
  identify <uid> <on|off>        - SET IDENTIFY_DEVICE
  mute [uid]                    - DISC_MUTE (broadcast if no uid given)
  unmute [uid]                  - DISC_UN_MUTE (broadcast if no uid given)
  help                          - show this help
  quit                          - exit

UIDs are written MMMM:DDDDDDDD, e.g. 7FF0:00000001`)
}
