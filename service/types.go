package service

import (
	"guardbot/config"
	"guardbot/filter"
)

// callback data tokens, joined with "_"
const (
	cbAccept  = "accept"
	cbDecline = "decline"
	cbJoinReq = "joinreq"
	cbRPS     = "rps"
	cbTTT     = "ttt"
	cbTagAll  = "tagall"
	cbCancel  = "cancel"
)

type commandFunc struct {
	filter.Command
	Help string
	Run  func(c *CommandConfig) error
}

var commandsFunc = make(map[string]commandFunc)

func register(cmd commandFunc) {
	commandsFunc[cmd.Name] = cmd
}

func cmd(name string) filter.Command {
	return filter.Command{Name: name}
}

func noDisable(name string) filter.Command {
	return filter.Command{Name: name, NoDisable: true}
}

func staffOnly(name string, role config.Role) filter.Command {
	return filter.Command{Name: name, Role: role, NoDisable: true}
}
