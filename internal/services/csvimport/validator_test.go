package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	header := []string{"customer_id", "customer_name", "customer_email", "customer_line_id", "original_text"}

	t.Run("Should accept a fully populated row", func(t *testing.T) {
		result := Validate([][]string{
			header,
			{"C-1", "김민지", "minji@example.com", "line-1", "피부 상담 내용"},
		})

		require.Len(t, result.ValidRecords, 1)
		assert.Empty(t, result.Errors)
		assert.Empty(t, result.Warnings)
		assert.Equal(t, "김민지", result.ValidRecords[0].CustomerName)
		assert.Equal(t, "피부 상담 내용", result.ValidRecords[0].OriginalText)
	})

	t.Run("Should reject a file with no data rows", func(t *testing.T) {
		result := Validate([][]string{header})

		assert.Empty(t, result.ValidRecords)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 0, result.Errors[0].Row)
		assert.Equal(t, "CSV 파일에 헤더와 데이터가 필요합니다", result.Errors[0].Message)
	})

	t.Run("Should reject a file missing the original_text column", func(t *testing.T) {
		result := Validate([][]string{
			{"customer_id", "customer_name"},
			{"C-1", "김민지"},
		})

		assert.Empty(t, result.ValidRecords)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 0, result.Errors[0].Row)
		assert.Contains(t, result.Errors[0].Message, "original_text")
	})

	t.Run("Should exclude rows with empty original_text and report the visual row number", func(t *testing.T) {
		result := Validate([][]string{
			header,
			{"C-1", "김민지", "minji@example.com", "line-1", "첫 번째 상담"},
			{"C-2", "이수진", "sujin@example.com", "line-2", "   "},
			{"C-3", "박하늘", "haneul@example.com", "line-3", "세 번째 상담"},
		})

		require.Len(t, result.ValidRecords, 2)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 3, result.Errors[0].Row) // header is row 1
		assert.Equal(t, "필수 필드 누락: original_text", result.Errors[0].Message)
		assert.Equal(t, KindError, result.Errors[0].Kind)
	})

	t.Run("Should keep rows with missing optional fields but warn once per row", func(t *testing.T) {
		result := Validate([][]string{
			header,
			{"", "김민지", "", "line-1", "상담 내용"},
		})

		require.Len(t, result.ValidRecords, 1)
		assert.Empty(t, result.Errors)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, 2, result.Warnings[0].Row)
		assert.Equal(t, "선택 필드 비어있음: customer_id, customer_email", result.Warnings[0].Message)
		assert.Equal(t, KindWarning, result.Warnings[0].Kind)
	})

	t.Run("Should match headers case-insensitively and ignore a BOM", func(t *testing.T) {
		result := Validate([][]string{
			{"\uFEFFCustomer_ID", " Original_Text "},
			{"C-1", "상담 내용"},
		})

		require.Len(t, result.ValidRecords, 1)
		assert.Equal(t, "C-1", result.ValidRecords[0].CustomerID)
		assert.Equal(t, "상담 내용", result.ValidRecords[0].OriginalText)
	})

	t.Run("Should tolerate data rows shorter than the header", func(t *testing.T) {
		result := Validate([][]string{
			header,
			{"C-1", "김민지", "minji@example.com", "line-1", "상담"},
			{"C-2"},
		})

		require.Len(t, result.ValidRecords, 1)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 3, result.Errors[0].Row)
	})

	t.Run("Should trim field values", func(t *testing.T) {
		result := Validate([][]string{
			header,
			{" C-1 ", " 김민지 ", "", "", " 상담 내용 "},
		})

		require.Len(t, result.ValidRecords, 1)
		assert.Equal(t, "C-1", result.ValidRecords[0].CustomerID)
		assert.Equal(t, "상담 내용", result.ValidRecords[0].OriginalText)
	})
}

func TestParseAndValidate(t *testing.T) {
	t.Run("Should stage a realistic multi-line upload end to end", func(t *testing.T) {
		csv := "customer_id,customer_name,customer_email,customer_line_id,original_text\n" +
			"C-1,김민지,minji@example.com,line-1,\"보톡스 상담,\n재방문 문의\"\n" +
			"C-2,,sujin@example.com,,두 번째 상담\n" +
			"\n"

		result := ParseAndValidate(csv)

		require.Len(t, result.ValidRecords, 2)
		assert.Equal(t, "보톡스 상담,\n재방문 문의", result.ValidRecords[0].OriginalText)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, 3, result.Warnings[0].Row)
	})
}

func TestPreviewRows(t *testing.T) {
	t.Run("Should cap the preview at PreviewCap rows", func(t *testing.T) {
		records := make([]DraftRow, PreviewCap+15)
		assert.Len(t, PreviewRows(records), PreviewCap)
	})

	t.Run("Should return short batches unchanged", func(t *testing.T) {
		records := make([]DraftRow, 3)
		assert.Len(t, PreviewRows(records), 3)
	})
}
