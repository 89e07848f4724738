package store

// Schema contains the SQLite schema. Dimension tables (devices,
// clock_configs) are never updated destructively; performance_metrics is
// append-only.
const Schema = `
CREATE TABLE IF NOT EXISTS devices (
    id          TEXT PRIMARY KEY,
    ip_address  TEXT NOT NULL,
    hostname    TEXT,
    model       TEXT,
    stratum_url  TEXT,
    stratum_port INTEGER,
    stratum_user TEXT,
    added_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- A clock configuration is a (frequency, core_voltage) operating point.
-- The UNIQUE constraint is the serialization point for concurrent
-- first observations of the same pair.
CREATE TABLE IF NOT EXISTS clock_configs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    frequency    INTEGER NOT NULL,
    core_voltage INTEGER NOT NULL,
    UNIQUE(frequency, core_voltage)
);

CREATE TABLE IF NOT EXISTS performance_metrics (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    config_id INTEGER NOT NULL,

    hashrate  REAL,
    power     REAL,
    voltage   REAL,
    current   REAL,

    asic_temp REAL,
    vreg_temp REAL,
    fan_speed INTEGER,
    fan_rpm   INTEGER,

    shares_accepted INTEGER,
    shares_rejected INTEGER,
    uptime          INTEGER,

    efficiency_jth REAL,
    efficiency_ghw REAL,

    best_diff REAL,

    FOREIGN KEY (device_id) REFERENCES devices(id),
    FOREIGN KEY (config_id) REFERENCES clock_configs(id)
);

CREATE INDEX IF NOT EXISTS idx_device_timestamp
    ON performance_metrics(device_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_config
    ON performance_metrics(config_id);
CREATE INDEX IF NOT EXISTS idx_timestamp
    ON performance_metrics(timestamp);

CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id  TEXT NOT NULL,
    config_id  INTEGER NOT NULL,
    started_at DATETIME NOT NULL,
    ended_at   DATETIME,
    notes      TEXT,
    FOREIGN KEY (device_id) REFERENCES devices(id),
    FOREIGN KEY (config_id) REFERENCES clock_configs(id)
);

-- At most one open session per device.
CREATE UNIQUE INDEX IF NOT EXISTS idx_open_session
    ON sessions(device_id) WHERE ended_at IS NULL;

CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// Migrations contains SQL migrations indexed by version.
// Each migration upgrades from version N-1 to version N.
var Migrations = map[int]string{
	1: Schema, // Initial schema
}
