package rowstream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
)

func Test_SelectionBuilder_ValidCombinations(t *testing.T) {
	tests := []struct {
		name     string
		build    func() rowstream.Selection
		validate func(t *testing.T, sel rowstream.Selection)
	}{
		{
			name: "table_only_selection",
			build: func() rowstream.Selection {
				return rowstream.BuildSelection("user_data").Finalize()
			},
			validate: func(t *testing.T, sel rowstream.Selection) {
				assert.Equal(t, "user_data", sel.Table())
				assert.Empty(t, sel.SelectedColumns())
				assert.Empty(t, sel.Conditions())
				assert.Empty(t, sel.OrderBy())
			},
		},
		{
			name: "selection_with_projection_and_ordering",
			build: func() rowstream.Selection {
				return rowstream.BuildSelection("user_data").
					WithColumns("user_id", "age").
					OrderedBy("user_id").
					Finalize()
			},
			validate: func(t *testing.T, sel rowstream.Selection) {
				assert.Equal(t, []string{"user_id", "age"}, sel.SelectedColumns())
				assert.Equal(t, []string{"user_id"}, sel.OrderBy())
			},
		},
		{
			name: "selection_with_conditions",
			build: func() rowstream.Selection {
				return rowstream.BuildSelection("user_data").
					Where(rowstream.C("age", rowstream.GreaterThan, 25)).
					Where(rowstream.C("name", rowstream.Equals, "Ada")).
					Finalize()
			},
			validate: func(t *testing.T, sel rowstream.Selection) {
				require.Len(t, sel.Conditions(), 2)
				assert.Equal(t, "age", sel.Conditions()[0].Column())
				assert.Equal(t, rowstream.GreaterThan, sel.Conditions()[0].Operator())
				assert.Equal(t, 25, sel.Conditions()[0].Value())
				assert.Equal(t, "name", sel.Conditions()[1].Column())
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.validate(t, tc.build())
		})
	}
}

func Test_Selection_ToSQL(t *testing.T) {
	sel := rowstream.BuildSelection("user_data").
		WithColumns("user_id", "age").
		Where(rowstream.C("age", rowstream.GreaterThan, 25)).
		OrderedBy("user_id").
		Finalize()

	sqlQuery, err := sel.ToSQL()

	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "user_id", "age" FROM "user_data" WHERE ("age" > 25) ORDER BY "user_id" ASC`,
		sqlQuery)
}

func Test_Selection_ToSQLWithRange(t *testing.T) {
	sel := rowstream.BuildSelection("user_data").
		WithColumns("user_id").
		OrderedBy("user_id").
		Finalize()

	firstPage, err := sel.ToSQLWithRange(2, 0)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "user_id" FROM "user_data" ORDER BY "user_id" ASC LIMIT 2`, firstPage)

	thirdPage, err := sel.ToSQLWithRange(2, 4)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "user_id" FROM "user_data" ORDER BY "user_id" ASC LIMIT 2 OFFSET 4`, thirdPage)
}

func Test_Selection_ToSQL_WithoutTable(t *testing.T) {
	sel := rowstream.Selection{}

	_, err := sel.ToSQL()

	assert.ErrorIs(t, err, rowstream.ErrValidation)
}

func Test_Selection_Signature_EqualSelectionsShareOne(t *testing.T) {
	build := func() rowstream.Selection {
		return rowstream.BuildSelection("user_data").
			WithColumns("user_id", "age").
			Where(rowstream.C("age", rowstream.GreaterThan, 25)).
			Finalize()
	}

	first, err := build().Signature()
	require.NoError(t, err)

	second, err := build().Signature()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func Test_Selection_Signature_DistinguishesBoundParameters(t *testing.T) {
	younger := rowstream.BuildSelection("user_data").
		Where(rowstream.C("age", rowstream.GreaterThan, 25)).
		Finalize()
	older := rowstream.BuildSelection("user_data").
		Where(rowstream.C("age", rowstream.GreaterThan, 40)).
		Finalize()

	youngerSig, err := younger.Signature()
	require.NoError(t, err)

	olderSig, err := older.Signature()
	require.NoError(t, err)

	assert.NotEqual(t, youngerSig, olderSig)
}

func Test_Signature_DistinguishesWhitespaceInsideLiterals(t *testing.T) {
	singleSpace, err := rowstream.Signature(`SELECT * FROM user_data WHERE name = 'a b'`)
	require.NoError(t, err)

	doubleSpace, err := rowstream.Signature(`SELECT * FROM user_data WHERE name = 'a  b'`)
	require.NoError(t, err)

	assert.NotEqual(t, singleSpace, doubleSpace, "literals differing only in whitespace are distinct queries")
}

func Test_Signature_EqualTextAndArgsShareOne(t *testing.T) {
	first, err := rowstream.Signature("SELECT * FROM user_data WHERE age > $1", 25)
	require.NoError(t, err)

	second, err := rowstream.Signature("SELECT * FROM user_data WHERE age > $1", 25)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func Test_Signature_IncludesBoundParameters(t *testing.T) {
	withArgs, err := rowstream.Signature("SELECT * FROM user_data WHERE age > $1", 25)
	require.NoError(t, err)

	withOtherArgs, err := rowstream.Signature("SELECT * FROM user_data WHERE age > $1", 40)
	require.NoError(t, err)

	withoutArgs, err := rowstream.Signature("SELECT * FROM user_data WHERE age > $1")
	require.NoError(t, err)

	assert.NotEqual(t, withArgs, withOtherArgs)
	assert.NotEqual(t, withArgs, withoutArgs)
}
