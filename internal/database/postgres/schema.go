package postgres

// Schema is written in the subset of SQL shared by Postgres and SQLite so the
// repository tests run the exact same DDL. Timestamps are unix seconds.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id                     TEXT PRIMARY KEY,
	email                  TEXT NOT NULL UNIQUE,
	password_hash          TEXT NOT NULL,
	full_name              TEXT NOT NULL DEFAULT '',
	role                   TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'active',
	phone_encrypted        TEXT NOT NULL DEFAULT '',
	national_id_encrypted  TEXT NOT NULL DEFAULT '',
	balance                NUMERIC(14,2) NOT NULL DEFAULT 0,
	login_attempts         INTEGER NOT NULL DEFAULT 0,
	locked_until           BIGINT NOT NULL DEFAULT 0,
	last_login_at          BIGINT,
	created_at             BIGINT NOT NULL,
	updated_at             BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id             TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	bucket         TEXT NOT NULL,
	object_name    TEXT NOT NULL,
	original_name  TEXT NOT NULL,
	content_type   TEXT NOT NULL,
	size           BIGINT NOT NULL,
	kind           TEXT NOT NULL,
	page_count     INTEGER NOT NULL DEFAULT 0,
	created_at     BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS apartments (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL REFERENCES users(id),
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	location        TEXT,
	rent            NUMERIC(14,2) NOT NULL DEFAULT 0,
	utilities       JSONB NOT NULL,
	images          JSONB NOT NULL,
	pdf_blueprints  JSONB NOT NULL,
	videos          JSONB NOT NULL,
	status          TEXT NOT NULL DEFAULT 'available',
	created_at      BIGINT NOT NULL,
	updated_at      BIGINT NOT NULL,
	revision        BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_apartments_owner ON apartments(owner_id);
CREATE INDEX IF NOT EXISTS idx_apartments_status ON apartments(status);

CREATE TABLE IF NOT EXISTS apartment_tenants (
	apartment_id  TEXT NOT NULL REFERENCES apartments(id) ON DELETE CASCADE,
	tenant_id     TEXT NOT NULL REFERENCES users(id),
	joined_at     BIGINT NOT NULL,
	PRIMARY KEY (apartment_id, tenant_id)
);
CREATE INDEX IF NOT EXISTS idx_apartment_tenants_tenant ON apartment_tenants(tenant_id);

CREATE TABLE IF NOT EXISTS contracts (
	id               TEXT PRIMARY KEY,
	apartment_id     TEXT NOT NULL REFERENCES apartments(id),
	owner_id         TEXT NOT NULL,
	status           TEXT NOT NULL,
	current_version  TEXT NOT NULL,
	start_date       BIGINT NOT NULL,
	end_date         BIGINT NOT NULL,
	created_at       BIGINT NOT NULL,
	updated_at       BIGINT NOT NULL,
	revision         BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_contracts_apartment ON contracts(apartment_id, status);

CREATE TABLE IF NOT EXISTS contract_versions (
	contract_id     TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
	version_number  INTEGER NOT NULL,
	minor_version   INTEGER NOT NULL DEFAULT 0,
	rent            NUMERIC(14,2) NOT NULL,
	utilities       JSONB NOT NULL,
	tenants         JSONB NOT NULL,
	changelog       JSONB NOT NULL,
	appendices      JSONB NOT NULL,
	created_at      BIGINT NOT NULL,
	updated_at      BIGINT NOT NULL,
	PRIMARY KEY (contract_id, version_number)
);

CREATE TABLE IF NOT EXISTS billings (
	id                TEXT PRIMARY KEY,
	apartment_id      TEXT NOT NULL REFERENCES apartments(id),
	owner_id          TEXT NOT NULL,
	contract_id       TEXT,
	contract_version  TEXT,
	period            TEXT NOT NULL,
	due_date          BIGINT NOT NULL,
	rent              NUMERIC(14,2) NOT NULL,
	utilities         JSONB NOT NULL,
	total_amount      NUMERIC(14,2) NOT NULL,
	amount_remaining  NUMERIC(14,2) NOT NULL,
	status            TEXT NOT NULL,
	created_at        BIGINT NOT NULL,
	updated_at        BIGINT NOT NULL,
	revision          BIGINT NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_billings_apartment_period ON billings(apartment_id, period);
CREATE INDEX IF NOT EXISTS idx_billings_status_due ON billings(status, due_date);

CREATE TABLE IF NOT EXISTS sub_bills (
	billing_id   TEXT NOT NULL REFERENCES billings(id) ON DELETE CASCADE,
	tenant_id    TEXT NOT NULL,
	share        NUMERIC(14,2) NOT NULL,
	amount       NUMERIC(14,2) NOT NULL,
	paid_amount  NUMERIC(14,2) NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	updated_at   BIGINT NOT NULL,
	revision     BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (billing_id, tenant_id)
);
CREATE INDEX IF NOT EXISTS idx_sub_bills_tenant ON sub_bills(tenant_id);

CREATE TABLE IF NOT EXISTS payments (
	id              TEXT PRIMARY KEY,
	billing_id      TEXT NOT NULL REFERENCES billings(id),
	tenant_id       TEXT NOT NULL,
	amount_paid     NUMERIC(14,2) NOT NULL,
	applied_amount  NUMERIC(14,2) NOT NULL,
	overpayment     NUMERIC(14,2) NOT NULL DEFAULT 0,
	method          TEXT NOT NULL,
	reference       TEXT NOT NULL DEFAULT '',
	recorded_by     TEXT NOT NULL,
	created_at      BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payments_billing ON payments(billing_id);
CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments(tenant_id);

CREATE TABLE IF NOT EXISTS bids (
	id            TEXT PRIMARY KEY,
	apartment_id  TEXT NOT NULL REFERENCES apartments(id) ON DELETE CASCADE,
	bidder_id     TEXT NOT NULL REFERENCES users(id),
	amount        NUMERIC(14,2) NOT NULL,
	message       TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	decided_by    TEXT,
	decided_at    BIGINT,
	created_at    BIGINT NOT NULL,
	updated_at    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bids_apartment ON bids(apartment_id, status);

CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	body        TEXT NOT NULL,
	data        JSONB,
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	email_sent  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  BIGINT NOT NULL,
	read_at     BIGINT
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);

CREATE TABLE IF NOT EXISTS reminder_log (
	billing_id  TEXT NOT NULL,
	tenant_id   TEXT NOT NULL,
	sent_on     TEXT NOT NULL,
	created_at  BIGINT NOT NULL,
	PRIMARY KEY (billing_id, tenant_id, sent_on)
);
`
