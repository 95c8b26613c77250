package record

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	return rows
}

func TestExport_WritesHeaderAndRows(t *testing.T) {
	svc, _, m := newService(t)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), Query{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 5)
	assert.Equal(t, ExportHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "14 Mar 2026", first[0])
	assert.Equal(t, "09:00 AM", first[1])
	assert.Equal(t, "Ada Obi", first[2])
	assert.Equal(t, "HOSP00000001", first[3])
	assert.Equal(t, "General Medicine", first[5])
	assert.Equal(t, "Yes", first[8])
	assert.Equal(t, "15000", first[9])
	assert.Equal(t, "Lagos General", first[13])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordExportsTotal))
}

func TestExport_AppliesFilters(t *testing.T) {
	svc, _, _ := newService(t)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), Query{Clinic: "Cardiology", SortOrder: "desc"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, "02:15 PM", rows[1][1])
	assert.Equal(t, "11:30 AM", rows[2][1])
}

func TestExport_PagesThroughLargeResults(t *testing.T) {
	svc, w, _ := newService(t)
	ctx := context.Background()

	// 250 extra appointments tomorrow, spread across the day.
	for i := 0; i < 250; i++ {
		a := &Appointment{
			PatientID:       w.bola.ID,
			FacilityID:      w.lagos,
			AppointmentTime: at(15, 8+i/60, i%60),
			Clinic:          "Urology",
		}
		require.NoError(t, w.repo.Create(ctx, a), fmt.Sprintf("appointment %d", i))
	}

	var buf bytes.Buffer
	n, err := svc.Export(ctx, Query{StartDate: "2026-03-15", EndDate: "2026-03-15"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 251, n)

	rows := readSheet(t, buf.Bytes())
	assert.Len(t, rows, 252)
}

func TestExport_EmptyWorkbookHasHeader(t *testing.T) {
	svc, _, _ := newService(t)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), Query{Clinic: "Psychiatry"}, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 1)
	assert.Equal(t, ExportHeader, rows[0])
}

func TestNewExportWorkbook_OnlyRecordsSheet(t *testing.T) {
	f, err := newExportWorkbook()
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	assert.Equal(t, exportSheet, f.GetSheetName(f.GetActiveSheetIndex()))
}

func TestExport_BadQuery(t *testing.T) {
	svc, _, _ := newService(t)
	var buf bytes.Buffer
	_, err := svc.Export(context.Background(), Query{FacilityID: "x"}, &buf)
	assert.Equal(t, 400, statusOf(err))
	assert.Zero(t, buf.Len())
}
