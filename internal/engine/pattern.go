package engine

import (
	nchess "github.com/corentings/chess/v2"
)

// Movement geometry that ignores check legality. The chess library only
// generates fully legal moves, so the permissive validation phase needs its
// own idea of how each piece moves.

var (
	knightSteps  = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps    = [][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	straightDirs = [][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	diagonalDirs = [][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
)

func squareAt(file, rank int) (nchess.Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}
	return nchess.NewSquare(nchess.File(file), nchess.Rank(rank)), true
}

// patternTargets lists squares reachable by the piece on from using movement
// geometry alone: occupancy blocks sliding pieces and friendly pieces cannot
// be captured, but exposing the own king is allowed.
func patternTargets(pos *nchess.Position, from nchess.Square) []nchess.Square {
	board := pos.Board()
	piece := board.Piece(from)
	if piece == nchess.NoPiece {
		return nil
	}

	switch piece.Type() {
	case nchess.Pawn:
		return pawnTargets(pos, from, piece.Color())
	case nchess.Knight:
		return stepTargets(board, from, piece.Color(), knightSteps)
	case nchess.King:
		return stepTargets(board, from, piece.Color(), kingSteps)
	case nchess.Bishop:
		return rayTargets(board, from, piece.Color(), diagonalDirs)
	case nchess.Rook:
		return rayTargets(board, from, piece.Color(), straightDirs)
	case nchess.Queen:
		targets := rayTargets(board, from, piece.Color(), straightDirs)
		return append(targets, rayTargets(board, from, piece.Color(), diagonalDirs)...)
	}
	return nil
}

// patternLegal reports whether the side to move can reach to from from by
// movement pattern, king safety not considered.
func patternLegal(pos *nchess.Position, from, to nchess.Square) bool {
	piece := pos.Board().Piece(from)
	if piece == nchess.NoPiece || piece.Color() != pos.Turn() {
		return false
	}
	for _, target := range patternTargets(pos, from) {
		if target == to {
			return true
		}
	}
	return false
}

func stepTargets(board *nchess.Board, from nchess.Square, color nchess.Color, steps [][2]int) []nchess.Square {
	var targets []nchess.Square
	for _, step := range steps {
		sq, ok := squareAt(int(from.File())+step[0], int(from.Rank())+step[1])
		if !ok {
			continue
		}
		if p := board.Piece(sq); p != nchess.NoPiece && p.Color() == color {
			continue
		}
		targets = append(targets, sq)
	}
	return targets
}

func rayTargets(board *nchess.Board, from nchess.Square, color nchess.Color, dirs [][2]int) []nchess.Square {
	var targets []nchess.Square
	for _, dir := range dirs {
		file, rank := int(from.File()), int(from.Rank())
		for {
			file += dir[0]
			rank += dir[1]
			sq, ok := squareAt(file, rank)
			if !ok {
				break
			}
			p := board.Piece(sq)
			if p == nchess.NoPiece {
				targets = append(targets, sq)
				continue
			}
			if p.Color() != color {
				targets = append(targets, sq)
			}
			break
		}
	}
	return targets
}

func pawnTargets(pos *nchess.Position, from nchess.Square, color nchess.Color) []nchess.Square {
	board := pos.Board()
	dir := 1
	startRank := 1
	if color == nchess.Black {
		dir = -1
		startRank = 6
	}

	var targets []nchess.Square
	if sq, ok := squareAt(int(from.File()), int(from.Rank())+dir); ok && board.Piece(sq) == nchess.NoPiece {
		targets = append(targets, sq)
		if int(from.Rank()) == startRank {
			if dbl, ok := squareAt(int(from.File()), int(from.Rank())+2*dir); ok && board.Piece(dbl) == nchess.NoPiece {
				targets = append(targets, dbl)
			}
		}
	}
	for _, df := range []int{-1, 1} {
		sq, ok := squareAt(int(from.File())+df, int(from.Rank())+dir)
		if !ok {
			continue
		}
		p := board.Piece(sq)
		if p != nchess.NoPiece && p.Color() != color {
			targets = append(targets, sq)
		} else if p == nchess.NoPiece && sq == pos.EnPassantSquare() {
			targets = append(targets, sq)
		}
	}
	return targets
}

// attacked reports whether any piece of color by attacks target.
func attacked(board *nchess.Board, target nchess.Square, by nchess.Color) bool {
	for _, step := range knightSteps {
		if sq, ok := squareAt(int(target.File())+step[0], int(target.Rank())+step[1]); ok {
			if p := board.Piece(sq); p != nchess.NoPiece && p.Color() == by && p.Type() == nchess.Knight {
				return true
			}
		}
	}
	for _, step := range kingSteps {
		if sq, ok := squareAt(int(target.File())+step[0], int(target.Rank())+step[1]); ok {
			if p := board.Piece(sq); p != nchess.NoPiece && p.Color() == by && p.Type() == nchess.King {
				return true
			}
		}
	}
	if rayAttack(board, target, by, straightDirs, nchess.Rook) ||
		rayAttack(board, target, by, diagonalDirs, nchess.Bishop) {
		return true
	}

	// A pawn attacks diagonally toward its movement direction, so the
	// attacker sits one rank behind the target.
	dir := -1
	if by == nchess.Black {
		dir = 1
	}
	for _, df := range []int{-1, 1} {
		if sq, ok := squareAt(int(target.File())+df, int(target.Rank())+dir); ok {
			if p := board.Piece(sq); p != nchess.NoPiece && p.Color() == by && p.Type() == nchess.Pawn {
				return true
			}
		}
	}
	return false
}

func rayAttack(board *nchess.Board, target nchess.Square, by nchess.Color, dirs [][2]int, slider nchess.PieceType) bool {
	for _, dir := range dirs {
		file, rank := int(target.File()), int(target.Rank())
		for {
			file += dir[0]
			rank += dir[1]
			sq, ok := squareAt(file, rank)
			if !ok {
				break
			}
			p := board.Piece(sq)
			if p == nchess.NoPiece {
				continue
			}
			if p.Color() == by && (p.Type() == slider || p.Type() == nchess.Queen) {
				return true
			}
			break
		}
	}
	return false
}

func inCheck(pos *nchess.Position) bool {
	board := pos.Board()
	side := pos.Turn()
	king, ok := kingSquare(board, side)
	if !ok {
		return false
	}
	return attacked(board, king, side.Other())
}

func kingSquare(board *nchess.Board, color nchess.Color) (nchess.Square, bool) {
	for sq := 0; sq < 64; sq++ {
		p := board.Piece(nchess.Square(sq))
		if p != nchess.NoPiece && p.Color() == color && p.Type() == nchess.King {
			return nchess.Square(sq), true
		}
	}
	return 0, false
}
