package journal

var Schema string = `
CREATE TABLE IF NOT EXISTS turns
(
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL DEFAULT '',

    at INTEGER NOT NULL,

    question TEXT NOT NULL DEFAULT '',
    answer   TEXT NOT NULL DEFAULT '',
    score    REAL NOT NULL DEFAULT 0,
    origin   TEXT NOT NULL DEFAULT '',
    outcome  TEXT NOT NULL DEFAULT '',
    error    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS turns_session_at ON turns (session_id, at);
CREATE INDEX IF NOT EXISTS turns_at ON turns (at);
`
