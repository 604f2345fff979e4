package sqlinline

const QSelectSetting = `--sql 0c5e7a3b-2f9d-4d61-b8a4-6e1f0a9c3d27
select value
from app_settings
where key = $1::text
limit 1;
`

const QUpsertSetting = `--sql 9b2d4f6a-8c1e-4a3b-9d5f-7e0c2b4a6d18
insert into app_settings (key, value, updated_at)
values ($1::text, $2::text, now())
on conflict (key) do update set
    value = excluded.value,
    updated_at = now();
`

const QCreateSettingsTable = `--sql 5a7c9e1b-3d5f-4b7a-8c9e-1f3a5b7c9d2e
create table if not exists app_settings (
    key text primary key,
    value text not null,
    updated_at timestamptz not null default now()
);
`
