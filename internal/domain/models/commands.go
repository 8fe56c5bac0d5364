package models

import "strings"

// CommandType enumerates the commands farmers can send over WhatsApp.
type CommandType string

const (
	CommandStatus   CommandType = "status"
	CommandRequests CommandType = "requests"
	CommandNext     CommandType = "next"
	CommandHelp     CommandType = "help"
	CommandUnknown  CommandType = "unknown"
)

// Command represents a parsed farmer instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	cmd := Command{Raw: message, Type: CommandUnknown}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return cmd
	}

	switch head := strings.TrimPrefix(tokens[0], "/"); head {
	case string(CommandStatus):
		cmd.Type = CommandStatus
	case string(CommandRequests), "mine":
		cmd.Type = CommandRequests
	case string(CommandNext), "eligibility":
		cmd.Type = CommandNext
	case string(CommandHelp), "start":
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
