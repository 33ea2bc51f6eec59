package wire

import (
	"pgwire/pkg/buffer"
	"pgwire/pkg/types"

	"github.com/lib/pq/oid"
)

// FieldDescription describes a single result column, as carried by a
// RowDescription message.
// https://www.postgresql.org/docs/8.3/catalog-pg-attribute.html
type FieldDescription struct {
	Name         string
	TableOid     int32
	ColumnAttr   int16
	TypeOid      oid.Oid
	TypeSize     int16
	TypeModifier int32
	Format       FormatCode
}

// FieldDescriptions is a collection of result column descriptions, mirroring
// the reference's Columns type but decode-side.
type FieldDescriptions []FieldDescription

// ReadRowDescription decodes a RowDescription payload (i16 count, then one
// field record per column) from the given reader.
func ReadRowDescription(reader *buffer.Reader) (FieldDescriptions, error) {
	count, err := reader.GetInt16()
	if err != nil {
		return nil, err
	}

	fields := make(FieldDescriptions, count)
	for i := range fields {
		field, err := readFieldDescription(reader)
		if err != nil {
			return nil, err
		}

		fields[i] = field
	}

	return fields, nil
}

func readFieldDescription(reader *buffer.Reader) (FieldDescription, error) {
	var field FieldDescription

	name, err := reader.GetString()
	if err != nil {
		return field, err
	}

	tableOid, err := reader.GetInt32()
	if err != nil {
		return field, err
	}

	attr, err := reader.GetInt16()
	if err != nil {
		return field, err
	}

	typeOid, err := reader.GetInt32()
	if err != nil {
		return field, err
	}

	size, err := reader.GetInt16()
	if err != nil {
		return field, err
	}

	modifier, err := reader.GetInt32()
	if err != nil {
		return field, err
	}

	format, err := reader.GetInt16()
	if err != nil {
		return field, err
	}

	field.Name = name
	field.TableOid = tableOid
	field.ColumnAttr = attr
	field.TypeOid = oid.Oid(typeOid)
	field.TypeSize = size
	field.TypeModifier = modifier
	field.Format = FormatCode(format)

	return field, nil
}

// DataRow represents a single row of a result set: an ordered sequence of
// optional byte strings, one per column. A nil entry denotes SQL NULL.
type DataRow struct {
	Columns [][]byte
}

// ReadDataRow decodes a DataRow payload (i16 column count, then each column
// as an i32 length followed by that many bytes, or -1 for NULL) from the
// given reader.
func ReadDataRow(reader *buffer.Reader) (DataRow, error) {
	count, err := reader.GetInt16()
	if err != nil {
		return DataRow{}, err
	}

	row := DataRow{Columns: make([][]byte, count)}
	for i := range row.Columns {
		length, err := reader.GetInt32()
		if err != nil {
			return DataRow{}, err
		}

		value, err := reader.GetBytes(int(length))
		if err != nil {
			return DataRow{}, err
		}

		row.Columns[i] = value
	}

	return row, nil
}

// ReadParameterDescription decodes a ParameterDescription payload (i16 count,
// then i32 oids) from the given reader.
func ReadParameterDescription(reader *buffer.Reader) ([]oid.Oid, error) {
	count, err := reader.GetInt16()
	if err != nil {
		return nil, err
	}

	oids := make([]oid.Oid, count)
	for i := range oids {
		raw, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		oids[i] = oid.Oid(raw)
	}

	return oids, nil
}

// ReadTransactionStatus decodes the single status byte of a ReadyForQuery
// message.
func ReadTransactionStatus(reader *buffer.Reader) (types.TransactionStatus, error) {
	b, err := reader.GetByte()
	if err != nil {
		return 0, err
	}

	switch types.TransactionStatus(b) {
	case types.TransactionIdle, types.TransactionInProg, types.TransactionFailed:
		return types.TransactionStatus(b), nil
	default:
		return 0, NewDecodeError("unknown transaction status: %q", string(b))
	}
}
