package common

// Backend table names. One table per entity.
const (
	TableContacts  = "contacts"
	TableTemplates = "templates"
	TableDeals     = "deals"
)

// Tables lists every table the backend serves.
var Tables = []string{TableContacts, TableTemplates, TableDeals}

// KnownTable reports whether name is one of Tables.
func KnownTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

const (
	// AuthorizationHeader carries the bearer token on outbound requests.
	AuthorizationHeader = "Authorization"

	// OriginHeader identifies the client process issuing a write so that it
	// can ignore its own invalidation events.
	OriginHeader = "X-Omnidesk-Origin"
)

// Record metadata columns set by the backend only.
const (
	ColumnID        = "id"
	ColumnTenantID  = "tenant_id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// MetadataColumns are stripped from every client payload before it is sent.
var MetadataColumns = []string{ColumnID, ColumnTenantID, ColumnCreatedAt, ColumnUpdatedAt}
