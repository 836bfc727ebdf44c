package raft

import "github.com/sirupsen/logrus"

// Logger exposes the same event taxonomy the original console logger
// did — one method per kind of Raft event — now backed by structured
// logrus fields instead of a printf-style formatter.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger wraps a logrus entry (already carrying this node's
// identity as a field) as a raft.Logger.
func NewLogger(entry *logrus.Entry) *Logger {
	return &Logger{entry: entry}
}

func (l *Logger) LogElectionStart(term uint64) {
	l.entry.WithField("term", term).Info("starting election")
}

func (l *Logger) LogElectionWon(term uint64, votes, needed int) {
	l.entry.WithFields(logrus.Fields{"term": term, "votes": votes, "needed": needed}).Info("election won")
}

func (l *Logger) LogElectionLost(term uint64, votes, needed int) {
	l.entry.WithFields(logrus.Fields{"term": term, "votes": votes, "needed": needed}).Info("election lost")
}

func (l *Logger) LogElectionDiscarded(term uint64, role State) {
	l.entry.WithFields(logrus.Fields{"term": term, "role": role.String()}).Debug("election round discarded: no longer candidate for this term")
}

func (l *Logger) LogVoteGranted(candidate string, term uint64) {
	l.entry.WithFields(logrus.Fields{"candidate": candidate, "term": term}).Info("granted vote")
}

func (l *Logger) LogHeartbeatSent(term uint64, peerCount int) {
	l.entry.WithFields(logrus.Fields{"term": term, "peers": peerCount}).Debug("sent heartbeats")
}

func (l *Logger) LogHeartbeatReceived(leader string, term uint64) {
	l.entry.WithFields(logrus.Fields{"leader": leader, "term": term}).Debug("heartbeat received")
}

func (l *Logger) LogStepDown(oldTerm, newTerm uint64, reason string) {
	l.entry.WithFields(logrus.Fields{"from_term": oldTerm, "to_term": newTerm, "reason": reason}).Info("stepping down")
}
