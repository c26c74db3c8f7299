package seed

import (
	"fmt"
	"slices"
	"strings"
)

// Compile renders the spec as one idempotent SQL script: schemas and
// tables via IF NOT EXISTS, roles via an existence check, rows with
// conflict-skip inserts. Compiling the same spec twice yields
// byte-identical output.
func (s *Spec) Compile() (string, error) {
	var sb strings.Builder
	sb.WriteString("-- generated by firstboot; safe to re-apply\n")

	for _, schema := range s.Schemas {
		fmt.Fprintf(&sb, "CREATE SCHEMA IF NOT EXISTS %s;\n", schema)
	}

	for _, role := range s.Roles {
		sb.WriteString(s.roleStatement(role))
	}

	for _, table := range s.Tables {
		fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n%s\n);\n", table.Name, strings.TrimRight(table.Definition, "\n"))

		for _, row := range table.Rows {
			stmt, err := s.insertStatement(table, row)
			if err != nil {
				return "", fmt.Errorf("table %q: %w", table.Name, err)
			}
			sb.WriteString(stmt)
		}
	}

	return sb.String(), nil
}

func (s *Spec) roleStatement(role Role) string {
	if s.Dialect == DialectMySQL {
		if role.Password != "" {
			return fmt.Sprintf("CREATE USER IF NOT EXISTS %s IDENTIFIED BY %s;\n", role.Name, stringLiteral(role.Password))
		}
		return fmt.Sprintf("CREATE USER IF NOT EXISTS %s;\n", role.Name)
	}

	create := fmt.Sprintf("CREATE ROLE %s", role.Name)
	if role.Login {
		create += " LOGIN"
	}
	if role.Password != "" {
		create += " PASSWORD " + stringLiteral(role.Password)
	}
	return fmt.Sprintf(
		"DO $$ BEGIN IF NOT EXISTS (SELECT FROM pg_roles WHERE rolname = %s) THEN %s; END IF; END $$;\n",
		stringLiteral(role.Name), create)
}

func (s *Spec) insertStatement(table Table, row map[string]any) (string, error) {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	slices.Sort(columns)

	values := make([]string, len(columns))
	for i, col := range columns {
		lit, err := literal(row[col])
		if err != nil {
			return "", fmt.Errorf("column %q: %w", col, err)
		}
		values[i] = lit
	}

	if s.Dialect == DialectMySQL {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s);\n",
			table.Name, strings.Join(columns, ", "), strings.Join(values, ", ")), nil
	}

	conflict := "ON CONFLICT DO NOTHING"
	if len(table.KeyColumns) > 0 {
		conflict = fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(table.KeyColumns, ", "))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s;\n",
		table.Name, strings.Join(columns, ", "), strings.Join(values, ", "), conflict), nil
}

func literal(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return stringLiteral(v), nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return fmt.Sprintf("%d", v), nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case uint64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), "."), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

func stringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
