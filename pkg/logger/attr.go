package logger

import "log/slog"

// Attribute helpers keep key names consistent. Helpers taking an id or
// error return an empty Attr, which slog drops, for zero values.

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

func UserID(id any) slog.Attr { return optional("user_id", id) }
func ChallengeID(id any) slog.Attr { return optional("challenge_id", id) }

func SubjectID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("subject_id", id)
}

func Method(m any) slog.Attr { return slog.Any("method", m) }
func SecurityLevel(l any) slog.Attr { return slog.Any("security_level", l) }
func Outcome(o any) slog.Attr { return slog.Any("outcome", o) }
func Duration(d any) slog.Attr { return slog.Any("duration", d) }
func Component(name string) slog.Attr { return slog.String("component", name) }
func Event(name string) slog.Attr { return slog.String("event", name) }

func optional(key string, v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	if s, ok := v.(string); ok && s == "" {
		return slog.Attr{}
	}
	return slog.Any(key, v)
}
