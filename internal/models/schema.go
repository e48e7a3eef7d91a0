package models

import (
	"fmt"
	"strings"
)

// Database schema. %[1]s is the auto-increment primary key column type,
// %[2]s the timestamp column type.
const trackerSchema = `
CREATE TABLE IF NOT EXISTS purchase_requests (
    id %[1]s,
    pr_number VARCHAR(64) NOT NULL,
    date_request DATE,
    staff_name VARCHAR(255) NOT NULL,
    programme_unit VARCHAR(100),
    type_services VARCHAR(20),
    category VARCHAR(100),
    description TEXT,
    type_vehicle VARCHAR(100),
    traveller_name VARCHAR(255),
    traveller_phone VARCHAR(50),
    from_date DATE,
    to_date DATE,
    days INTEGER NOT NULL DEFAULT 0,
    location VARCHAR(255),
    qty INTEGER NOT NULL DEFAULT 1,
    est_cost_pkr NUMERIC(19, 4) NOT NULL DEFAULT 0,
    est_cost_usd NUMERIC(19, 4) NOT NULL DEFAULT 0,
    reminder_expiry BOOLEAN NOT NULL DEFAULT FALSE,
    reminder_days INTEGER,
    comments TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'Submitted',
    assigned_to VARCHAR(255),
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pr_number ON purchase_requests (pr_number);
CREATE INDEX IF NOT EXISTS idx_pr_category ON purchase_requests (category);
CREATE INDEX IF NOT EXISTS idx_pr_staff ON purchase_requests (staff_name);

CREATE TABLE IF NOT EXISTS pr_allocations (
    id %[1]s,
    pr_id BIGINT NOT NULL REFERENCES purchase_requests (id) ON DELETE CASCADE,
    project_name VARCHAR(255) NOT NULL,
    task_name VARCHAR(255) NOT NULL,
    percentage INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alloc_pr ON pr_allocations (pr_id);

CREATE TABLE IF NOT EXISTS payments (
    id %[1]s,
    pr_id BIGINT REFERENCES purchase_requests (id) ON DELETE CASCADE,
    pr_number VARCHAR(64),
    category VARCHAR(100),
    po_number VARCHAR(100),
    invoice_number VARCHAR(100),
    wave_receipt VARCHAR(100),
    work_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
    work_order BOOLEAN NOT NULL DEFAULT FALSE,
    work_order_number VARCHAR(100),
    actual_usd NUMERIC(19, 4),
    actual_pkr NUMERIC(19, 4) NOT NULL DEFAULT 0,
    payment_date DATE,
    remarks TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'Pending',
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payment_pr ON payments (pr_id);

CREATE TABLE IF NOT EXISTS dsa_payments (
    id %[1]s,
    date_request DATE,
    staff_name VARCHAR(255) NOT NULL,
    programme_unit VARCHAR(100),
    type_services VARCHAR(20),
    dsa_type VARCHAR(50),
    vendor_name VARCHAR(255),
    description TEXT,
    location VARCHAR(255),
    start_date DATE,
    end_date DATE,
    days NUMERIC(10, 1) NOT NULL DEFAULT 0,
    amount_pkr NUMERIC(19, 4) NOT NULL DEFAULT 0,
    ist_number VARCHAR(100),
    comments TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'Pending',
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
);

CREATE TABLE IF NOT EXISTS operational_advances (
    id %[1]s,
    date_request DATE,
    staff_name VARCHAR(255) NOT NULL,
    programme_unit VARCHAR(100),
    supplier_name VARCHAR(255),
    description TEXT,
    invoice_type VARCHAR(20),
    invoice_no VARCHAR(100),
    total_amount NUMERIC(19, 4) NOT NULL DEFAULT 0,
    invoice_currency VARCHAR(10),
    payment_currency VARCHAR(10),
    location VARCHAR(255),
    comments TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'Pending',
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
);

CREATE TABLE IF NOT EXISTS liquidations (
    id %[1]s,
    oa_id BIGINT UNIQUE REFERENCES operational_advances (id) ON DELETE CASCADE,
    date_request DATE,
    staff_name VARCHAR(255) NOT NULL,
    programme_unit VARCHAR(100),
    category VARCHAR(100),
    supplier_name VARCHAR(255),
    description TEXT,
    invoice_type VARCHAR(20),
    invoice_no VARCHAR(100),
    total_amount NUMERIC(19, 4) NOT NULL DEFAULT 0,
    invoice_currency VARCHAR(10),
    payment_currency VARCHAR(10),
    liquidation_ist VARCHAR(100),
    liquidation_amount NUMERIC(19, 4) NOT NULL DEFAULT 0,
    wbs_project_code VARCHAR(100),
    wbs_task_number VARCHAR(100),
    unspent_amount NUMERIC(19, 4) NOT NULL DEFAULT 0,
    unspent_deposited BOOLEAN NOT NULL DEFAULT FALSE,
    deposited_amount NUMERIC(19, 4),
    unspent_ist1 VARCHAR(100),
    unspent_ist2 VARCHAR(100),
    unspent_wbs_project_code VARCHAR(100),
    unspent_wbs_task_number VARCHAR(100),
    documents_submitted BOOLEAN NOT NULL DEFAULT FALSE,
    location VARCHAR(255),
    comments TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'Pending',
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
);

CREATE TABLE IF NOT EXISTS status_history (
    id %[1]s,
    record_type VARCHAR(20) NOT NULL,
    record_id VARCHAR(64) NOT NULL,
    old_status VARCHAR(20),
    new_status VARCHAR(20) NOT NULL,
    changed_by VARCHAR(255) NOT NULL,
    changed_at %[2]s NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_record ON status_history (record_type, record_id, changed_at);
`

// SchemaStatements returns the schema for the given dialect, one statement per element.
func SchemaStatements(dialect string) []string {
	pk, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if dialect == "postgres" {
		pk, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}

	var stmts []string
	for _, stmt := range strings.Split(fmt.Sprintf(trackerSchema, pk, ts), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
