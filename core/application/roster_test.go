package application

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qazmun/mun/core/conference"
)

func TestWriteRosterCSV(t *testing.T) {
	committees := []conference.Committee{{ID: "sc", Name: "Security Council"}, {ID: "ga", Name: "General Assembly"}}
	apps := []Application{
		{FullName: "Unplaced", Email: "u@test.kz"},
		{FullName: "Bolat", Email: "b@test.kz", AssignedCommitteeID: "ga", AssignedCountry: "Chile"},
		{FullName: "Dana, Jr.", Email: "d@test.kz", AssignedCommitteeID: "sc", AssignedCountry: "USA"},
		{FullName: "Ali", Email: "a@test.kz", AssignedCommitteeID: "sc", AssignedCountry: "France", School: "NIS"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRosterCSV(&buf, committees, apps))
	assert.Equal(t, "committee,country,full_name,email,phone,school\n"+
		"Security Council,France,Ali,a@test.kz,,NIS\n"+
		"Security Council,USA,\"Dana, Jr.\",d@test.kz,,\n"+
		"General Assembly,Chile,Bolat,b@test.kz,,\n"+
		",,Unplaced,u@test.kz,,\n", buf.String())
	assert.Equal(t, "Unplaced", apps[0].FullName, "input left untouched")
}
