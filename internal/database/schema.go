package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied statement by statement; every statement is idempotent.
// uq_booking_seat is the constraint that makes double booking impossible.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)    NOT NULL,
		token_hash CHAR(64)    NOT NULL,
		expires_at DATETIME    NOT NULL,
		revoked_at DATETIME    NULL,
		created_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY ix_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS auditoriums (
		id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS addresses (
		auditorium_id BIGINT       NOT NULL PRIMARY KEY,
		lat           DOUBLE       NOT NULL,
		lng           DOUBLE       NOT NULL,
		address       VARCHAR(512) NOT NULL DEFAULT '',
		KEY ix_addresses_lat_lng (lat, lng),
		CONSTRAINT fk_address_auditorium FOREIGN KEY (auditorium_id) REFERENCES auditoriums (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS auditorium_managers (
		auditorium_id BIGINT   NOT NULL,
		user_id       CHAR(36) NOT NULL,
		PRIMARY KEY (auditorium_id, user_id),
		KEY ix_manager_user (user_id),
		CONSTRAINT fk_am_auditorium FOREIGN KEY (auditorium_id) REFERENCES auditoriums (id) ON DELETE CASCADE,
		CONSTRAINT fk_am_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS screens (
		id                BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
		auditorium_id     BIGINT      NOT NULL,
		number            INT         NOT NULL,
		rows_count        INT         NOT NULL,
		cols_count        INT         NOT NULL,
		price             INT         NOT NULL DEFAULT 0,
		projection_type   VARCHAR(32) NOT NULL DEFAULT 'STANDARD',
		sound_system_type VARCHAR(32) NOT NULL DEFAULT 'STEREO',
		UNIQUE KEY uq_screen_number (auditorium_id, number),
		CONSTRAINT fk_screen_auditorium FOREIGN KEY (auditorium_id) REFERENCES auditoriums (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seats (
		id        BIGINT     NOT NULL AUTO_INCREMENT PRIMARY KEY,
		screen_id BIGINT     NOT NULL,
		row_no    INT        NOT NULL,
		col_no    INT        NOT NULL,
		booked    TINYINT(1) NOT NULL DEFAULT 0,
		UNIQUE KEY uq_seat (screen_id, row_no, col_no),
		CONSTRAINT fk_seat_screen FOREIGN KEY (screen_id) REFERENCES screens (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS shows (
		id           BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title        VARCHAR(255) NOT NULL,
		genre        VARCHAR(32)  NOT NULL,
		organizer    VARCHAR(255) NOT NULL,
		duration_min INT          NOT NULL,
		release_date DATETIME     NOT NULL,
		created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS showtimes (
		id         BIGINT   NOT NULL AUTO_INCREMENT PRIMARY KEY,
		show_id    BIGINT   NOT NULL,
		screen_id  BIGINT   NOT NULL,
		start_time DATETIME NOT NULL,
		KEY ix_showtimes_screen_start (screen_id, start_time),
		CONSTRAINT fk_showtime_show FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE CASCADE,
		CONSTRAINT fk_showtime_screen FOREIGN KEY (screen_id) REFERENCES screens (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id         BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)    NOT NULL,
		reference  VARCHAR(64) NOT NULL,
		payload    TEXT        NOT NULL,
		status     VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
		checkout_session_id VARCHAR(255) NULL,
		created_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_ticket_reference (reference),
		UNIQUE KEY uq_ticket_checkout_session (checkout_session_id),
		KEY ix_tickets_user (user_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id          BIGINT   NOT NULL AUTO_INCREMENT PRIMARY KEY,
		showtime_id BIGINT   NOT NULL,
		screen_id   BIGINT   NOT NULL,
		row_no      INT      NOT NULL,
		col_no      INT      NOT NULL,
		user_id     CHAR(36) NOT NULL,
		ticket_id   BIGINT   NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_booking_seat (showtime_id, screen_id, row_no, col_no),
		KEY ix_bookings_user (user_id, created_at),
		KEY ix_bookings_ticket (ticket_id),
		CONSTRAINT fk_booking_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id) ON DELETE CASCADE,
		CONSTRAINT fk_booking_ticket FOREIGN KEY (ticket_id) REFERENCES tickets (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// InitializeSchema creates any missing tables.
func InitializeSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
