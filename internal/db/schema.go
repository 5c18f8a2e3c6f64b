package db

// schema is the full tenant-scoped database schema. Timestamps are Unix
// milliseconds; money columns are cents.
const schema = `
CREATE TABLE IF NOT EXISTS tenants (
    tenant_id     TEXT PRIMARY KEY,
    account_email TEXT NOT NULL DEFAULT '',
    settings_ref  TEXT NOT NULL DEFAULT '',
    menu_ref      TEXT NOT NULL DEFAULT '',
    drive_ref     TEXT NOT NULL DEFAULT '',
    metadata      TEXT,
    created_at    INTEGER NOT NULL DEFAULT 0,
    updated_at    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS menu_items (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    category          TEXT NOT NULL DEFAULT '',
    price             INTEGER NOT NULL DEFAULT 0,
    cost              INTEGER NOT NULL DEFAULT 0,
    image_ref         TEXT NOT NULL DEFAULT '',
    consume_unit      TEXT NOT NULL DEFAULT '',
    purchase_unit     TEXT NOT NULL DEFAULT '',
    units_per_package INTEGER NOT NULL DEFAULT 0,
    shelf_life_days   INTEGER NOT NULL DEFAULT 0,
    low_stock         INTEGER NOT NULL DEFAULT 0,
    updated_at        INTEGER NOT NULL DEFAULT 0,
    units_updated_at  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS categories (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS units (
    item_id           TEXT PRIMARY KEY,
    consume_unit      TEXT NOT NULL DEFAULT '',
    purchase_unit     TEXT NOT NULL DEFAULT '',
    units_per_package INTEGER NOT NULL DEFAULT 0,
    updated_at        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS inventory_items (
    item_id         TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    cost            INTEGER NOT NULL DEFAULT 0,
    category        TEXT NOT NULL DEFAULT '',
    shelf_life_days INTEGER NOT NULL DEFAULT 0,
    low_stock       INTEGER NOT NULL DEFAULT 0,
    updated_at      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tickets (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    opened_by  TEXT NOT NULL DEFAULT '',
    opened_at  INTEGER NOT NULL DEFAULT 0,
    status     TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
    closed_at  INTEGER NOT NULL DEFAULT 0,
    closed_by  TEXT NOT NULL DEFAULT '',
    pay_method TEXT NOT NULL DEFAULT '',
    pay_amount INTEGER NOT NULL DEFAULT 0,
    notes      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ticket_items (
    id         TEXT PRIMARY KEY,
    ticket_id  TEXT NOT NULL REFERENCES tickets(id),
    sku        TEXT NOT NULL DEFAULT '',
    name       TEXT NOT NULL,
    price      INTEGER NOT NULL DEFAULT 0,
    qty        INTEGER NOT NULL CHECK (qty > 0),
    line_total INTEGER NOT NULL DEFAULT 0,
    options    TEXT NOT NULL DEFAULT '[]',
    added_at   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ticket_items_ticket ON ticket_items(ticket_id);

CREATE TABLE IF NOT EXISTS restocks (
    id                TEXT PRIMARY KEY,
    item_id           TEXT NOT NULL,
    ts                INTEGER NOT NULL DEFAULT 0,
    unit              TEXT NOT NULL DEFAULT '',
    package           TEXT NOT NULL DEFAULT '',
    units_per_package INTEGER NOT NULL DEFAULT 0,
    packages          INTEGER NOT NULL DEFAULT 0,
    extra_units       INTEGER NOT NULL DEFAULT 0,
    total_units       INTEGER NOT NULL DEFAULT 0,
    actor             TEXT NOT NULL DEFAULT '',
    notes             TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_restocks_item ON restocks(item_id, ts DESC);

CREATE TABLE IF NOT EXISTS outbox (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    action   TEXT NOT NULL,
    resource TEXT NOT NULL DEFAULT '',
    payload  TEXT NOT NULL DEFAULT '{}',
    ts       INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 0,
    parked   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_log (
    id        TEXT PRIMARY KEY,
    ts        INTEGER NOT NULL DEFAULT 0,
    action    TEXT NOT NULL,
    entity    TEXT NOT NULL DEFAULT '',
    entity_id TEXT NOT NULL DEFAULT '',
    actor     TEXT NOT NULL DEFAULT '',
    details   TEXT
);

CREATE TABLE IF NOT EXISTS staff (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL DEFAULT '',
    pin_hash   TEXT NOT NULL DEFAULT '',
    role       TEXT NOT NULL DEFAULT 'cashier' CHECK (role IN ('manager', 'cashier')),
    updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS image_cache (
    ref        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL DEFAULT '',
    fetched_at INTEGER NOT NULL DEFAULT 0
);
`
