package service

import (
	"crypto/rand"
	"guardbot/util"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const gameTTL = time.Hour

var rpsMoves = []string{"rock", "paper", "scissors"}

var rpsEmoji = map[string]string{"rock": "🪨", "paper": "📄", "scissors": "✂️"}

func init() {
	register(commandFunc{Command: cmd("rps"), Help: "rock paper scissors against me, or reply to challenge someone", Run: (*CommandConfig).rpsCommand})
	register(commandFunc{Command: cmd("ttt"), Help: "reply to someone to play tic-tac-toe", Run: (*CommandConfig).tttCommand})
}

type rpsGame struct {
	players [2]*tgbotapi.User
	moves   [2]string
}

type tttGame struct {
	players [2]*tgbotapi.User
	board   [9]int // 0 empty, 1 X, 2 O
	turn    int
}

type gameEntry struct {
	chatID  int64
	created time.Time
	rps     *rpsGame
	ttt     *tttGame
}

// gameStore keeps running games in memory; a restart forfeits them.
type gameStore struct {
	mu    sync.Mutex
	seq   uint64
	games map[string]*gameEntry
}

func newGameStore() *gameStore {
	return &gameStore{games: make(map[string]*gameEntry)}
}

func (s *gameStore) add(g *gameEntry) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, old := range s.games {
		if g.created.Sub(old.created) > gameTTL {
			delete(s.games, id)
		}
	}
	s.seq++
	id := strconv.FormatUint(s.seq, 36)
	s.games[id] = g
	return id
}

// with runs fn on the game under the store lock.
func (s *gameStore) with(id string, chatID int64, fn func(g *gameEntry) (done bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok || g.chatID != chatID {
		return false
	}
	if fn(g) {
		delete(s.games, id)
	}
	return true
}

func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		logrus.Error(err)
		return 0
	}
	return int(v.Int64())
}

// rpsWinner returns 0 or 1 for the winning side, -1 on a draw.
func rpsWinner(a, b string) int {
	if a == b {
		return -1
	}
	beats := map[string]string{"rock": "scissors", "paper": "rock", "scissors": "paper"}
	if beats[a] == b {
		return 0
	}
	return 1
}

func validMove(m string) bool {
	_, ok := rpsEmoji[m]
	return ok
}

func (c *CommandConfig) rpsCommand() error {
	if !c.conf.Modules.EnableGames {
		return nil
	}
	from := c.from()
	reply := c.update.Message.ReplyToMessage
	if reply != nil && reply.From != nil && !reply.From.IsBot && reply.From.ID != from.ID && !c.isPrivate() {
		return c.rpsChallenge(from, reply.From)
	}
	move := strings.ToLower(c.arg(0))
	if !validMove(move) {
		return userErr("Pick rock, paper or scissors.")
	}
	botMove := rpsMoves[randInt(len(rpsMoves))]
	text := util.StrBuilder(rpsEmoji[move], " vs ", rpsEmoji[botMove], "\n")
	switch rpsWinner(move, botMove) {
	case 0:
		text += "You win!"
		c.addScore(from)
	case 1:
		text += "I win!"
	default:
		text += "It's a draw."
	}
	return c.reply(text)
}

func (c *CommandConfig) rpsChallenge(from, opponent *tgbotapi.User) error {
	id := c.games.add(&gameEntry{
		chatID:  c.chatID,
		created: time.Now(),
		rps:     &rpsGame{players: [2]*tgbotapi.User{from, opponent}},
	})
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(rpsMoves))
	for _, m := range rpsMoves {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(rpsEmoji[m], callbackData(cbRPS, id, m)))
	}
	text := util.StrBuilder(mention(from), " challenges ", mention(opponent), " to rock paper scissors!\nBoth players pick a move.")
	return c.replyWithMarkup(text, tgbotapi.NewInlineKeyboardMarkup(row))
}

func (c *CallBack) rpsMove(id, move string) error {
	from := c.update.CallbackQuery.From
	if !validMove(move) {
		return c.answer("Unknown move.")
	}
	var (
		player   = -1
		finished *rpsGame
	)
	found := c.games.with(id, c.chatID, func(g *gameEntry) bool {
		if g.rps == nil {
			return false
		}
		for i, p := range g.rps.players {
			if p.ID == from.ID && g.rps.moves[i] == "" {
				player = i
				g.rps.moves[i] = move
			}
		}
		if g.rps.moves[0] != "" && g.rps.moves[1] != "" {
			finished = g.rps
			return true
		}
		return false
	})
	switch {
	case !found:
		return c.answer("This game is over.")
	case player < 0:
		return c.answer("This is not your game, or you already picked.")
	case finished == nil:
		return c.answer(util.StrBuilder("You picked ", move, "."))
	}
	if err := c.answer(""); err != nil {
		logrus.Warnf("answer_callback err=%v", err)
	}
	p, m := finished.players, finished.moves
	text := util.StrBuilder(mention(p[0]), " ", rpsEmoji[m[0]], " vs ", rpsEmoji[m[1]], " ", mention(p[1]), "\n")
	if w := rpsWinner(m[0], m[1]); w >= 0 {
		text = util.StrBuilder(text, mention(p[w]), " wins!")
		c.addScore(p[w])
	} else {
		text += "It's a draw."
	}
	return c.editText(text, nil)
}

func (c *CommandConfig) tttCommand() error {
	if !c.conf.Modules.EnableGames {
		return nil
	}
	if err := c.requireGroup(); err != nil {
		return err
	}
	from := c.from()
	reply := c.update.Message.ReplyToMessage
	if reply == nil || reply.From == nil || reply.From.IsBot || reply.From.ID == from.ID {
		return userErr("Reply to someone to challenge them.")
	}
	g := &tttGame{players: [2]*tgbotapi.User{from, reply.From}}
	id := c.games.add(&gameEntry{chatID: c.chatID, created: time.Now(), ttt: g})
	return c.replyWithMarkup(tttText(g, -1), tttBoard(id, g))
}

func tttText(g *tttGame, winner int) string {
	head := util.StrBuilder("❌ ", mention(g.players[0]), " vs ⭕ ", mention(g.players[1]), "\n")
	switch {
	case winner >= 0:
		return util.StrBuilder(head, mention(g.players[winner]), " wins!")
	case tttFull(g):
		return head + "It's a draw."
	}
	return util.StrBuilder(head, "Turn: ", mention(g.players[g.turn]))
}

func tttBoard(id string, g *tttGame) tgbotapi.InlineKeyboardMarkup {
	marks := []string{"·", "❌", "⭕"}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 3)
	for r := 0; r < 3; r++ {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 3)
		for col := 0; col < 3; col++ {
			cell := r*3 + col
			data := callbackData(cbTTT, id, strconv.Itoa(cell))
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(marks[g.board[cell]], data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var tttLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// tttWinner returns the winning player index or -1.
func tttWinner(g *tttGame) int {
	for _, l := range tttLines {
		if v := g.board[l[0]]; v != 0 && v == g.board[l[1]] && v == g.board[l[2]] {
			return v - 1
		}
	}
	return -1
}

func tttFull(g *tttGame) bool {
	for _, v := range g.board {
		if v == 0 {
			return false
		}
	}
	return true
}

func (c *CallBack) tttMove(id, cellArg string) error {
	from := c.update.CallbackQuery.From
	cell, err := strconv.Atoi(cellArg)
	if err != nil || cell < 0 || cell > 8 {
		return c.answer("Unknown cell.")
	}
	var (
		reject  string
		state   tttGame
		winner  = -1
		changed bool
	)
	found := c.games.with(id, c.chatID, func(g *gameEntry) bool {
		t := g.ttt
		if t == nil {
			return false
		}
		switch {
		case t.players[t.turn].ID != from.ID:
			reject = "It's not your turn."
			return false
		case t.board[cell] != 0:
			reject = "That cell is taken."
			return false
		}
		t.board[cell] = t.turn + 1
		winner = tttWinner(t)
		changed = true
		done := winner >= 0 || tttFull(t)
		if !done {
			t.turn = 1 - t.turn
		}
		state = *t
		return done
	})
	switch {
	case !found:
		return c.answer("This game is over.")
	case reject != "":
		return c.answer(reject)
	case !changed:
		return c.answer("")
	}
	if err := c.answer(""); err != nil {
		logrus.Warnf("answer_callback err=%v", err)
	}
	if winner >= 0 {
		c.addScore(state.players[winner])
	}
	board := tttBoard(id, &state)
	return c.editText(tttText(&state, winner), &board)
}
