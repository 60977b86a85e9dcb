package validator

// field maps one Signal attribute to the key the webhook sender uses for it
type field struct {
	Name  string // internal name
	Alias string // external name, same as Name when the sender does not rename it
}

// Field names, in the order they are validated
const (
	FieldAccountName        = "account_name"
	FieldSide               = "side"
	FieldExchange           = "exchange"
	FieldPeriod             = "period"
	FieldMarketPosition     = "market_position"
	FieldPrevMarketPosition = "prev_market_position"
	FieldSymbol             = "symbol"
	FieldPrice              = "price"
	FieldSize               = "size"
	FieldPositionSize       = "position_size"
	FieldTimestamp          = "timestamp"
	FieldID                 = "id"
	FieldQtyType            = "qty_type"
	FieldAlertMessage       = "alert_message"
	FieldComment            = "comment"
	FieldTVID               = "tv_id"
	FieldDelta1             = "delta1"
	FieldMinExpiry          = "n"
	FieldDelta2             = "delta2"
)

// fields is the alias table. It is consulted once per payload by normalize.
var fields = []field{
	{FieldAccountName, "accountName"},
	{FieldSide, FieldSide},
	{FieldExchange, FieldExchange},
	{FieldPeriod, FieldPeriod},
	{FieldMarketPosition, "marketPosition"},
	{FieldPrevMarketPosition, "prevMarketPosition"},
	{FieldSymbol, FieldSymbol},
	{FieldPrice, FieldPrice},
	{FieldSize, FieldSize},
	{FieldPositionSize, "positionSize"},
	{FieldTimestamp, FieldTimestamp},
	{FieldID, FieldID},
	{FieldQtyType, "qtyType"},
	{FieldAlertMessage, "alertMessage"},
	{FieldComment, FieldComment},
	{FieldTVID, FieldTVID},
	{FieldDelta1, FieldDelta1},
	{FieldMinExpiry, FieldMinExpiry},
	{FieldDelta2, FieldDelta2},
}

var aliasOf = func() map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Alias
	}
	return m
}()

// Alias returns the external key for an internal field name
func Alias(name string) string {
	if a, ok := aliasOf[name]; ok {
		return a
	}
	return name
}

// entry is a raw value found for a field plus the key it was found under
type entry struct {
	key   string
	value any
}

// normalize resolves every known field from raw. The external alias wins
// over the internal name when a sender supplies both. A JSON null counts
// as absent.
func normalize(raw map[string]any) map[string]entry {
	out := make(map[string]entry, len(fields))
	for _, f := range fields {
		if v, ok := raw[f.Alias]; ok && v != nil {
			out[f.Name] = entry{key: f.Alias, value: v}
			continue
		}
		if f.Alias == f.Name {
			continue
		}
		if v, ok := raw[f.Name]; ok && v != nil {
			out[f.Name] = entry{key: f.Name, value: v}
		}
	}
	return out
}
