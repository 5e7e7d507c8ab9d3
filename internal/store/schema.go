package store

// schema is applied on every Open. Timestamps are UnixMilli integers.
//
// The UNIQUE constraint on sentiment_results(document_id, scorer_name,
// scorer_version) is what makes concurrent scoring runs safe: both runs may
// score the same document, but only one result row is ever stored; the
// loser's insert is reported as already-processed.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id              TEXT PRIMARY KEY,
    source_type     TEXT NOT NULL,
    source_id       TEXT NOT NULL UNIQUE,
    source_metadata TEXT NOT NULL DEFAULT '{}',
    ingested_at     INTEGER NOT NULL,
    published_at    INTEGER,
    language        TEXT NOT NULL,
    title           TEXT NOT NULL DEFAULT '',
    body            TEXT NOT NULL,
    labels          TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_documents_ingested ON documents(ingested_at);

CREATE TABLE IF NOT EXISTS sentiment_results (
    id              TEXT PRIMARY KEY,
    document_id     TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    scorer_name     TEXT NOT NULL,
    scorer_version  TEXT NOT NULL,
    pipeline_stage  TEXT NOT NULL DEFAULT 'batch',
    scored_at       INTEGER NOT NULL,
    label           TEXT NOT NULL,
    score           REAL NOT NULL,
    scores_by_label TEXT,
    UNIQUE(document_id, scorer_name, scorer_version)
);
CREATE INDEX IF NOT EXISTS idx_results_document ON sentiment_results(document_id, scored_at DESC);

CREATE TABLE IF NOT EXISTS keyword_aggregates (
    keyword        TEXT PRIMARY KEY,
    positive_count INTEGER NOT NULL DEFAULT 0,
    neutral_count  INTEGER NOT NULL DEFAULT 0,
    negative_count INTEGER NOT NULL DEFAULT 0,
    total_count    INTEGER NOT NULL DEFAULT 0,
    updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    type        TEXT NOT NULL,
    config_json TEXT NOT NULL DEFAULT '{}',
    schedule    TEXT NOT NULL DEFAULT 'manual',
    status      TEXT NOT NULL DEFAULT 'inactive',
    last_run    INTEGER,
    last_error  TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
`
