package models

import "strings"

// CommandType enumerates the operator commands accepted over chat.
type CommandType string

const (
	CommandReorder  CommandType = "reorder"
	CommandCompare  CommandType = "compare"
	CommandLowStock CommandType = "lowstock"
	CommandHelp     CommandType = "help"
	CommandUnknown  CommandType = "unknown"
)

// Command represents a parsed operator instruction extracted from message text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.ToLower(message))
	cmd := Command{Raw: message, Type: CommandUnknown}
	if len(tokens) == 0 {
		return cmd
	}

	switch head := CommandType(strings.TrimPrefix(tokens[0], "/")); head {
	case CommandReorder, CommandCompare, CommandLowStock, CommandHelp:
		cmd.Type = head
	case "low-stock":
		cmd.Type = CommandLowStock
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}
