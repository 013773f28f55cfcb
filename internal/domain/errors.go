package domain

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrWrongPassword  = errors.New("incorrect room password")
	ErrNotCreator     = errors.New("only the room creator may do this")
	ErrNotInRoom      = errors.New("user not in the room")
	ErrMemberNotFound = errors.New("member not found")
	ErrCodeExhausted  = errors.New("unable to generate unique room code")

	ErrShareNotFound  = errors.New("share link not found")
	ErrShareInactive  = errors.New("share link is no longer active")
	ErrShareExpired   = errors.New("share link has expired")
	ErrShareExhausted = errors.New("share link has reached maximum uses")

	ErrInviteNotFound = errors.New("invitation not found")
	ErrInviteExpired  = errors.New("invitation has expired")
	ErrInviteAnswered = errors.New("invitation has already been answered")
)
