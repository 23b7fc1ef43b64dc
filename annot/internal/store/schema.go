package store

// Schema contains the complete DDL for the dommark tables.
const Schema = `
-- Collections: whole-collection JSON snapshots keyed by opaque names
-- ("annotations:<pagekey>", "picks:<pagekey>"). Writers replace the
-- full payload; partial updates are never assumed.
CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Page snapshots: archived documents pulled by the bridge or supplied
-- by callers. Restoration and picking parse these.
CREATE TABLE IF NOT EXISTS page_snapshots (
    id         TEXT PRIMARY KEY,
    page_key   TEXT NOT NULL,
    url        TEXT NOT NULL,
    html       BLOB NOT NULL,
    sha256     TEXT NOT NULL,
    fetched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_page ON page_snapshots(page_key, fetched_at DESC);

-- Events: audit trail written by the service and the restore loops.
CREATE TABLE IF NOT EXISTS events (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    ts            INTEGER NOT NULL,
    level         TEXT NOT NULL,
    source        TEXT NOT NULL,
    message       TEXT NOT NULL,
    page_key      TEXT NOT NULL DEFAULT '',
    annotation_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
CREATE INDEX IF NOT EXISTS idx_events_page ON events(page_key) WHERE page_key != '';
`
