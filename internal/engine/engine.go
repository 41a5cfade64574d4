package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned when a move cannot be committed in the current
// position.
var ErrIllegalMove = errors.New("move is not legal in this position")

// Engine wraps a single chess game and exposes the operations the match
// pipeline needs: candidate generation, rule-checked application, and a
// forced application path that skips check legality.
type Engine struct {
	game *nchess.Game
}

func New() *Engine {
	return &Engine{game: nchess.NewGame()}
}

func NewFromFEN(fen string) (*Engine, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}
	return &Engine{game: nchess.NewGame(opt)}, nil
}

// FEN returns the current board snapshot.
func (e *Engine) FEN() string {
	return e.game.FEN()
}

func (e *Engine) SideToMove() string {
	return colorName(e.game.Position().Turn())
}

// InCheck reports whether the side to move has its king under attack.
func (e *Engine) InCheck() bool {
	return inCheck(e.game.Position())
}

// ParseSquare converts algebraic coordinates ("e2") into a board square.
func ParseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("malformed square %q", s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

// PieceAt reports the piece on a square ("white pawn"), false when the
// square is empty or malformed.
func (e *Engine) PieceAt(square string) (string, bool) {
	sq, err := ParseSquare(square)
	if err != nil {
		return "", false
	}
	piece := e.game.Position().Board().Piece(sq)
	if piece == nchess.NoPiece {
		return "", false
	}
	return pieceName(piece), true
}

// CandidateTargets lists destination squares for the piece on from. The set
// is the union of the engine's legal destinations and the raw movement
// pattern of the piece, so moves that only fail check legality still pass
// this phase. Empty when the square is empty or holds an opponent piece.
func (e *Engine) CandidateTargets(from string) []string {
	sq, err := ParseSquare(from)
	if err != nil {
		return nil
	}
	pos := e.game.Position()
	piece := pos.Board().Piece(sq)
	if piece == nchess.NoPiece || piece.Color() != pos.Turn() {
		return nil
	}

	seen := make(map[nchess.Square]bool)
	for _, mv := range e.game.ValidMoves() {
		if mv.S1() == sq {
			seen[mv.S2()] = true
		}
	}
	for _, to := range patternTargets(pos, sq) {
		seen[to] = true
	}

	targets := make([]string, 0, len(seen))
	for to := range seen {
		targets = append(targets, to.String())
	}
	sort.Strings(targets)
	return targets
}

// Result describes a committed move.
type Result struct {
	SAN     string
	Piece   string
	Capture bool
	Check   bool // side to move after the move is in check
	Forced  bool // committed through ForceApply
}

// Apply validates the move against the full rules and commits it. Pawns
// reaching the last rank promote to a queen.
func (e *Engine) Apply(from, to string) (*Result, error) {
	pos := e.game.Position()
	mv, err := e.decodeMove(pos, from, to)
	if err != nil {
		return nil, ErrIllegalMove
	}

	res := e.describe(pos, mv)
	if err := e.game.Move(mv, nil); err != nil {
		return nil, ErrIllegalMove
	}
	res.SAN = nchess.AlgebraicNotation{}.Encode(pos, mv)
	res.Check = e.InCheck()
	return res, nil
}

// ForceApply commits a pattern-legal move without consulting check
// legality. The updated position replaces the live game state.
func (e *Engine) ForceApply(from, to string) (*Result, error) {
	fromSq, err := ParseSquare(from)
	if err != nil {
		return nil, ErrIllegalMove
	}
	toSq, err := ParseSquare(to)
	if err != nil {
		return nil, ErrIllegalMove
	}

	pos := e.game.Position()
	if !patternLegal(pos, fromSq, toSq) {
		return nil, ErrIllegalMove
	}
	mv, err := e.decodeMove(pos, from, to)
	if err != nil {
		return nil, ErrIllegalMove
	}

	res := e.describe(pos, mv)
	res.SAN = nchess.AlgebraicNotation{}.Encode(pos, mv)
	res.Forced = true

	next := pos.Update(mv)
	opt, err := nchess.FEN(next.String())
	if err != nil {
		return nil, fmt.Errorf("rebuilding position: %w", err)
	}
	e.game = nchess.NewGame(opt)
	res.Check = e.InCheck()
	return res, nil
}

// Status reports whether the game has ended and how.
type Status struct {
	Over      bool
	Checkmate bool
	Draw      bool
	Reason    string // draw reason
	Winner    string // winning side on checkmate
}

func (e *Engine) Status() Status {
	pos := e.game.Position()
	switch pos.Status() {
	case nchess.Checkmate:
		return Status{Over: true, Checkmate: true, Winner: colorName(pos.Turn().Other())}
	case nchess.Stalemate:
		return Status{Over: true, Draw: true, Reason: "draw"}
	}
	if e.game.Outcome() == nchess.Draw {
		reason := "draw"
		if e.game.Method() == nchess.InsufficientMaterial {
			reason = "insufficient material"
		}
		return Status{Over: true, Draw: true, Reason: reason}
	}
	return Status{}
}

func (e *Engine) decodeMove(pos *nchess.Position, from, to string) (*nchess.Move, error) {
	fromSq, err := ParseSquare(from)
	if err != nil {
		return nil, err
	}
	toSq, err := ParseSquare(to)
	if err != nil {
		return nil, err
	}

	uci := fromSq.String() + toSq.String()
	piece := pos.Board().Piece(fromSq)
	if piece.Type() == nchess.Pawn && (toSq.Rank() == nchess.Rank8 || toSq.Rank() == nchess.Rank1) {
		uci += "q" // promotion is always to a queen
	}
	return nchess.UCINotation{}.Decode(pos, uci)
}

// describe captures move facts that must be read before the position
// changes.
func (e *Engine) describe(pos *nchess.Position, mv *nchess.Move) *Result {
	board := pos.Board()
	moved := board.Piece(mv.S1())

	capture := board.Piece(mv.S2()) != nchess.NoPiece
	if !capture && moved.Type() == nchess.Pawn && mv.S1().File() != mv.S2().File() {
		capture = true // en passant
	}

	return &Result{
		Piece:   pieceWord(moved.Type()),
		Capture: capture,
	}
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}

func pieceName(p nchess.Piece) string {
	return colorName(p.Color()) + " " + pieceWord(p.Type())
}

func pieceWord(t nchess.PieceType) string {
	switch t {
	case nchess.Pawn:
		return "pawn"
	case nchess.Knight:
		return "knight"
	case nchess.Bishop:
		return "bishop"
	case nchess.Rook:
		return "rook"
	case nchess.Queen:
		return "queen"
	case nchess.King:
		return "king"
	}
	return ""
}
