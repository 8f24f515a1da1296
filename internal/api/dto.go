package api

import (
	"github.com/starford/leanjournal/internal/logprop"
	"github.com/starford/leanjournal/internal/moc"
	"github.com/starford/leanjournal/internal/models"
	"github.com/starford/leanjournal/internal/settings"
)

// DocumentResponse is a vault note with its path.
type DocumentResponse = models.Document

// MOCResponse reports one daily MOC refresh.
type MOCResponse = moc.Result

// ReportResponse summarises a backfill or reset run.
type ReportResponse = logprop.Report

// SettingsBody is the settings object read and written by the settings
// endpoints. PUT accepts a partial object; absent keys keep their value.
type SettingsBody = settings.Settings
