package analysis

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// columns is the exact output schema, in order. Absent subtracted values are
// emitted as an empty field, never as 0 or NaN.
var columns = []string{
	"roi_id",
	"roi_name",
	"n_pixels",
	"n_background_pixels",
	"mean_raw",
	"median_raw",
	"background",
	"mean_bg_subtracted",
	"median_bg_subtracted",
	"background_mean",
	"background_std",
}

// WriteRecords writes one delimited record file for a (condition,
// configuration) pair.
func WriteRecords(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating output table %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return errors.Wrapf(err, "writing header of %s", path)
	}

	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.RoiID),
			rec.RoiName,
			strconv.Itoa(rec.NPixels),
			strconv.Itoa(rec.NBackgroundPixels),
			formatFloat(rec.MeanRaw),
			formatFloat(rec.MedianRaw),
			formatFloat(rec.Background),
			formatOptional(rec.MeanBgSubtracted),
			formatOptional(rec.MedianBgSubtracted),
			formatFloat(rec.BackgroundMean),
			formatFloat(rec.BackgroundStd),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "writing row %d of %s", rec.RoiID, path)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "flushing output table %s", path)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
