package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	profilesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "display_name", Type: field.TypeString, Default: ""},
		{Name: "grade_level", Type: field.TypeString, Default: ""},
		{Name: "learning_style", Type: field.TypeString, Default: ""},
		{Name: "plan", Type: field.TypeString, Default: PlanFree},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	profilesTable = &schema.Table{
		Name:       "profiles",
		Columns:    profilesColumns,
		PrimaryKey: []*schema.Column{profilesColumns[0]},
	}

	historyColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "flow", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "input", Type: field.TypeString, Size: 1 << 20},
		{Name: "output", Type: field.TypeString, Size: 1 << 24},
		{Name: "created_at", Type: field.TypeInt64},
	}
	historyTable = &schema.Table{
		Name:       "history_items",
		Columns:    historyColumns,
		PrimaryKey: []*schema.Column{historyColumns[0]},
		Indexes: []*schema.Index{
			{Name: "historyitem_user_id_created_at", Columns: []*schema.Column{historyColumns[1], historyColumns[6]}},
			{Name: "historyitem_user_id_flow", Columns: []*schema.Column{historyColumns[1], historyColumns[2]}},
		},
	}

	llmEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "tier", Type: field.TypeString, Default: ""},
		{Name: "attempt", Type: field.TypeInt, Default: 0},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 1 << 24, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 1 << 24, Default: ""},
	}
	llmEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmEventsColumns[5]}},
			{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{llmEventsColumns[2]}},
		},
	}

	ordersColumns = []*schema.Column{
		{Name: "order_id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "receipt", Type: field.TypeString},
		{Name: "amount", Type: field.TypeInt64},
		{Name: "currency", Type: field.TypeString},
		{Name: "status", Type: field.TypeString, Default: OrderCreated},
		{Name: "payment_id", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	ordersTable = &schema.Table{
		Name:       "payment_orders",
		Columns:    ordersColumns,
		PrimaryKey: []*schema.Column{ordersColumns[0]},
		Indexes: []*schema.Index{
			{Name: "paymentorder_user_id", Columns: []*schema.Column{ordersColumns[1]}},
		},
	}

	usageColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "day", Type: field.TypeString},
		{Name: "count", Type: field.TypeInt, Default: 0},
	}
	usageTable = &schema.Table{
		Name:       "usage_counters",
		Columns:    usageColumns,
		PrimaryKey: []*schema.Column{usageColumns[0], usageColumns[1]},
	}

	tables = []*schema.Table{
		profilesTable,
		historyTable,
		llmEventsTable,
		ordersTable,
		usageTable,
	}
)
